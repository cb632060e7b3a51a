package control

import (
	"strconv"

	"github.com/sweeney/irrigation-controller/internal/logging"
)

// Intent is the classification of an inbound topic.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentAction
	IntentIntensity
	IntentSelectPump
)

func (i Intent) String() string {
	switch i {
	case IntentAction:
		return "action"
	case IntentIntensity:
		return "intensity"
	case IntentSelectPump:
		return "select-pump"
	default:
		return "unknown"
	}
}

// Router decodes inbound commands, applies them through the Driver and
// returns the status messages the change warrants.
type Router struct {
	topics Topics
	driver *Driver
	log    *logging.Logger
}

// NewRouter creates a Router for the given topics.
func NewRouter(topics Topics, driver *Driver, log *logging.Logger) *Router {
	return &Router{topics: topics, driver: driver, log: log}
}

// Topics returns the router's topic set.
func (r *Router) Topics() Topics {
	return r.topics
}

// Classify maps a topic to its intent.
func (r *Router) Classify(topic string) Intent {
	switch topic {
	case r.topics.Action:
		return IntentAction
	case r.topics.Intensity:
		return IntentIntensity
	case r.topics.Pump:
		return IntentSelectPump
	default:
		return IntentUnknown
	}
}

// Handle applies one inbound command to st and returns the status messages
// to publish. Unknown topics, unrecognized action payloads and failed
// hardware writes produce no messages.
//
// A pump selection is always acknowledged with the id received, even when
// the id is out of range and the selection was ignored.
func (r *Router) Handle(topic, payload string, st *State) []Message {
	switch r.Classify(topic) {
	case IntentAction:
		a, ok := ParseAction(payload)
		if !ok {
			r.log.Debug("ignoring unrecognized action", "payload", payload)
			return nil
		}
		if err := r.driver.ApplyAction(st, a); err != nil {
			r.log.Warn("apply action failed", "action", a, "pump", st.ActiveID, "error", err)
			return nil
		}
		r.log.Info("action applied", "action", a, "pump", st.ActiveID)
		return []Message{{Topic: r.topics.StatusAction, Payload: string(a)}}

	case IntentIntensity:
		requested := ParseInt(payload)
		if err := r.driver.SetIntensity(st, requested); err != nil {
			r.log.Warn("set intensity failed", "percent", requested, "error", err)
			return nil
		}
		r.log.Info("intensity set", "percent", st.Intensity, "duty", st.Duty)
		return []Message{{Topic: r.topics.StatusIntensity, Payload: strconv.Itoa(st.Intensity)}}

	case IntentSelectPump:
		id := ParseInt(payload)
		if r.driver.SelectChannel(st, id) {
			r.log.Info("pump selected", "pump", id)
		} else {
			r.log.Warn("ignoring invalid pump id", "pump", id, "active", st.ActiveID)
		}
		return []Message{{Topic: r.topics.StatusPump, Payload: strconv.Itoa(id)}}

	default:
		r.log.Debug("ignoring message on unknown topic", "topic", topic)
		return nil
	}
}
