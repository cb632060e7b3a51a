package main

import (
	"os"
	"time"

	"github.com/sweeney/irrigation-controller/internal/control"
	"github.com/sweeney/irrigation-controller/internal/history"
	"github.com/sweeney/irrigation-controller/internal/indicator"
	"github.com/sweeney/irrigation-controller/internal/logging"
	"github.com/sweeney/irrigation-controller/internal/mqtt"
	"github.com/sweeney/irrigation-controller/internal/status"
)

// pumpTelemetry receives the state after every applied command.
type pumpTelemetry interface {
	WritePumpState(r control.StatusReport, at time.Time)
}

// changeNotifier is told when the status changes.
type changeNotifier interface {
	NotifyChange()
}

// loop is the single consumer of every command. It owns state; nothing
// else reads or writes it.
type loop struct {
	state     *control.State
	driver    *control.Driver
	router    *control.Router
	publisher *control.Publisher
	inbox     *mqtt.Inbox
	sup       *mqtt.Supervisor
	tracker   *status.Tracker
	recorder  *history.Recorder
	telemetry pumpTelemetry
	notifier  changeNotifier
	blinker   *indicator.Blinker
	web       <-chan commandRequest
	now       func() time.Time
	log       *logging.Logger

	announced bool
}

// closed is always ready; selecting on it keeps the loop spinning while
// the inbox still holds messages.
var closed = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// run services the supervisor tick, the blink timer, web commands and the
// inbox until a signal arrives. Each iteration processes at most one
// inbox message, to completion, in arrival order.
func (l *loop) run(tick, blink <-chan time.Time, sig <-chan os.Signal) error {
	for {
		ready := l.inbox.Ready()
		if l.inbox.Len() > 0 {
			ready = closed
		}

		select {
		case s := <-sig:
			l.log.Info("received signal, shutting down", "signal", s.String())
			l.shutdown()
			return nil

		case t := <-tick:
			l.serviceConnection(t)

		case <-blink:
			if err := l.blinker.Tick(); err != nil {
				l.log.Warn("indicator write failed", "error", err)
			}

		case req := <-l.web:
			req.done <- l.handleWeb(req.action)

		case <-ready:
			if msg, ok := l.inbox.Pop(); ok {
				l.process(history.SourceMQTT, msg.Topic, msg.Payload)
			}
		}
	}
}

func (l *loop) serviceConnection(t time.Time) {
	connected := l.sup.Tick(t)
	if connected && !l.announced {
		l.announced = true
		n := l.publisher.Publish(control.StatusMessages(l.router.Topics(), l.state.Report()))
		l.log.Info("published startup state", "messages", n)
	}
	l.tracker.SetMQTT(status.MQTTInfo{
		State:     l.sup.State().String(),
		Connected: l.sup.Connected(),
		ClientID:  l.sup.ClientID(),
	})
	l.tracker.SetDropped(l.inbox.Dropped())
	if connected && l.notifier != nil {
		l.notifier.NotifyChange()
	}
}

// process routes one command, publishes the resulting status and updates
// every observer. It reports whether the command produced a status change.
func (l *loop) process(src history.Source, topic, payload string) bool {
	msgs := l.router.Handle(topic, payload, l.state)
	accepted := len(msgs) > 0
	l.publisher.Publish(msgs)

	report := l.state.Report()
	l.tracker.Update(report)
	l.tracker.CountCommand(accepted)

	at := l.now()
	l.recorder.Record(history.Entry{
		ReceivedAt: at,
		Source:     src,
		Topic:      topic,
		Payload:    payload,
		Accepted:   accepted,
		ActivePump: l.state.ActiveID,
		Intensity:  l.state.Intensity,
	})
	if accepted && l.telemetry != nil {
		l.telemetry.WritePumpState(report, at)
	}
	if l.notifier != nil {
		l.notifier.NotifyChange()
	}
	return accepted
}

func (l *loop) handleWeb(a control.Action) error {
	if !l.process(history.SourceHTTP, l.router.Topics().Action, string(a)) {
		return errNotApplied
	}
	return nil
}

func (l *loop) shutdown() {
	if err := l.driver.Reset(l.state); err != nil {
		l.log.Error("failed to de-energize outputs", "error", err)
	}
	l.tracker.Update(l.state.Report())
	if err := l.blinker.Off(); err != nil {
		l.log.Warn("indicator off failed", "error", err)
	}
}
