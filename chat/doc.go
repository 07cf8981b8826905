// Package chat is the caller-facing client: it keeps named conversations,
// sends them to a chat provider with any registered tools, and generates
// images.
//
// Every operation reports failure inside the returned Response rather than
// as an error or panic:
//
//	c, err := chat.New(os.Getenv("OPENAI_API_KEY"), "You are terse.", chat.WithStoragePath("./convs"))
//	resp := c.Chat(ctx, "hello", "ann", chat.InConversation("team"))
//	if !resp.Success {
//		log.Print(resp.Message)
//	}
package chat
