// Package mqtt is the broker connection shared by the xComfort core.
//
// The core never talks to the bridge directly. A relay owns the bridge
// session and mirrors it onto the broker: the snapshot and incremental
// updates arrive on feed topics, and outbound requests leave on the
// request topic. The core publishes derived state, heater power and its
// own online status back to the broker.
//
//	bridge ↔ relay ↔ broker ↔ xcomfortd ↔ consumers
//
// The client reconnects with backoff, restores its subscriptions after a
// reconnect and registers a retained LWT on xcomfort/system/status so
// consumers see when the core disappears.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{}
//	err = client.Subscribe(topics.FeedUpdate("bridge-1"), 1,
//	    func(topic string, payload []byte) error {
//	        return loop.PostUpdate(payload)
//	    })
package mqtt
