// Package config loads and validates the irrigation controller configuration.
//
// A minimal config.yaml:
//
//	mqtt:
//	  host: "192.168.1.200"
//	  username: "pump"
//	  password: "secret"
//	pumps:
//	  pins: {1: 27, 2: 26}
//	  pulse_duration: 5s
//	http:
//	  addr: ":8080"
//
// Every field has a default, so an empty file (or no file) is valid.
package config
