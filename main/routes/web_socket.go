package routes

import (
	"clienthub/realtime"

	"github.com/gin-gonic/gin"
)

func SetupWebSocketRoutes(r *gin.Engine, socketServer *realtime.SocketServer) {
	r.GET("/ws", socketServer.HandleSocket)
}
