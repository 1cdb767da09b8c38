package notify

import (
	"github.com/godbus/dbus/v5"
)

const (
	dbusInterface     = "org.freedesktop.Notifications"
	signalInvoked     = dbusInterface + ".ActionInvoked"
	signalClosed      = dbusInterface + ".NotificationClosed"
	matchNotification = "type='signal',interface='" + dbusInterface + "'"
)

// action is a user interaction with a notification shown on the desktop.
// An empty key means the notification was closed.
type action struct {
	id  uint32
	key string
}

// listenActions subscribes to the signals sent by the notification server on the session bus
func listenActions() (<-chan action, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, err
	}
	call := conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchNotification)
	if call.Err != nil {
		return nil, call.Err
	}
	signals := make(chan *dbus.Signal, 10)
	conn.Signal(signals)

	actions := make(chan action, 10)
	go func() {
		defer close(actions)
		for signal := range signals {
			if len(signal.Body) < 2 {
				continue
			}
			id, ok := signal.Body[0].(uint32)
			if !ok {
				continue
			}
			switch signal.Name {
			case signalInvoked:
				key, _ := signal.Body[1].(string)
				if key != "" {
					actions <- action{id: id, key: key}
				}
			case signalClosed:
				actions <- action{id: id}
			}
		}
	}()
	return actions, nil
}
