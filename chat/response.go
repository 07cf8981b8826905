package chat

import (
	"github.com/petasbytes/simplechat/internal/provider"
)

// Response is the outcome of one chat or image call. On success Message is
// the reply text or image URL; otherwise it describes the failure.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func success(msg string) Response { return Response{Success: true, Message: msg} }

func failure(err error) Response {
	return Response{Success: false, Message: provider.APIErrorMessage(err)}
}
