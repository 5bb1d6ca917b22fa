package domain

import "github.com/gin-gonic/gin"

type BackendHttpGetHandler interface {
	// WriteError writes an error back to the client.
	WriteError(*gin.Context, error)

	// HandleRequest handles a message/request from the front-end.
	HandleRequest(*gin.Context)
}
