package mqtt

import (
	"context"
	"fmt"
)

// Command actions accepted on maa/command/<uuid>/<action>.
const (
	ActionStart = "start"
	ActionStop  = "stop"
)

// DeviceController is the part of the device manager driven by commands.
type DeviceController interface {
	Start(ctx context.Context, uuid string) error
	Stop(ctx context.Context, uuid string) error
}

// CommandHandler returns a MessageHandler routing command topics to ctrl.
// The payload is ignored.
func CommandHandler(ctx context.Context, ctrl DeviceController) MessageHandler {
	return func(topic string, _ []byte) error {
		uuid, action, err := Topics{}.ParseCommand(topic)
		if err != nil {
			return err
		}

		switch action {
		case ActionStart:
			return ctrl.Start(ctx, uuid)
		case ActionStop:
			return ctrl.Stop(ctx, uuid)
		default:
			return fmt.Errorf("%w: %s", ErrUnknownCommand, action)
		}
	}
}
