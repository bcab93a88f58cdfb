// Package client implements a WebDAV client on top of [net/http].
//
// # Building a Client
//
// A [Client] is bound to one origin. Relative paths resolve against its
// base location, which [Client.Cd] may move within the same origin:
//
//	c, err := client.Build("https://dav.example.com/files/",
//		client.WithCredentials("alice", "secret"),
//		client.WithTimeout(30*time.Second),
//	)
//
// # Authentication and redirects
//
// Requests are sent anonymously first. A 401 challenge switches the
// client to Basic or Digest, and the accepted scheme is used up front for
// the rest of the client's life. Redirects are followed only while they
// stay on the same scheme, host and port. Challenges and redirects share
// a budget of ten retries per operation.
//
// # Operations
//
// Each WebDAV verb has a method: [Client.Propfind], [Client.Get],
// [Client.Put], [Client.Mkdir], [Client.Delete], [Client.Move],
// [Client.Copy], [Client.Proppatch], [Client.Lock] and [Client.Unlock].
// Failures other than auth and redirects come back as [*ServerError]:
//
//	if _, err := c.Get(ctx, "report.pdf"); client.IsNotFound(err) {
//		...
//	}
//
// # Traversal
//
// [Client.Find] walks a tree lazily; a collection is only listed when
// the loop reaches it:
//
//	for item, err := range c.Find(ctx, "/", client.WithRecursive()) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(item.URL.Path)
//	}
//
// A Client is not safe for concurrent use.
package client
