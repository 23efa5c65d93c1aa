// Package client is a small Redis command API over a transporter.
//
// It covers connection setup (AUTH, SELECT), a handful of server, string
// and pub/sub commands, and raw execution of command lines. Server error
// replies become *resp.ServerError values; everything else is returned as
// typed Go values.
//
//	c, err := client.Dial(client.Options{Host: "127.0.0.1", Port: 6379})
//	if err != nil { ... }
//	defer c.Close()
//
//	sub, err := c.Subscribe("news")
//	for m := range sub.C { ... }
package client
