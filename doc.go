// Package wirebus is a topic-based publish/subscribe messaging layer
// providing decoupled, many-to-many delivery of structured events and raw
// byte payloads between processes, over tcp or websocket transports, with
// optional curve-based end-to-end security.
//
// A Publisher binds a port and fans messages out to every connected
// Subscriber; Subscribers filter inbound messages through hierarchical
// topic subscriptions, where a subscription to "home/" covers
// "home/livingroom/" and everything else below it. Each message carries a
// content-type tag distinguishing structured events from opaque byte
// blobs, so one channel transports both.
//
//	pub := wirebus.NewPublisher(4150)
//	_ = pub.Start()
//
//	sub := wirebus.NewSubscriber("127.0.0.1", 4150, nil,
//		func(topic string, env *envelope.Envelope) {
//			// ...
//		})
//	_ = sub.Start()
//	_ = sub.Subscribe(topic.Single("home/"))
//
//	env, _ := envelope.NewEvent(&envelope.Event{Name: "light.on"})
//	_ = pub.Publish(env, topic.Single("home/livingroom"))
package wirebus
