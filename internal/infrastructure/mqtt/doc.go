// Package mqtt mirrors engine events to an MQTT broker and accepts remote
// start/stop commands.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Last Will and Testament (LWT) on maa/system/status
//   - The event mirror (Forwarder): every bus message is published to
//     maa/event/<uuid>/<topic> inside a JSON envelope
//   - The command bridge (CommandHandler): maa/command/<uuid>/<action>
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	fwd := mqtt.NewForwarder(client, byte(cfg.MQTT.QoS))
//	defer fwd.Close()
//	bus.SubscribeAll(fwd.Forward)
//
//	err = client.Subscribe(mqtt.Topics{}.AllCommands(), 1,
//	    mqtt.CommandHandler(ctx, manager))
//
// Envelope format:
//
//	{"id":"<uuid v4>","timestamp":"<RFC3339>","topic":"10002","uuid":"dev1","payload":{...}}
package mqtt
