package routes

import (
	"clienthub/auth"
	"clienthub/portal"

	"github.com/gin-gonic/gin"
)

func SetupAPIRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.POST("/register", auth.HandleRegister)
		api.POST("/login", auth.HandleLogin)
	}

	containers := api.Group("/containers", auth.AuthMiddleware())
	{
		containers.POST("", portal.HandleCreateContainer)
		containers.GET("", portal.HandleListContainers)
	}

	owned := containers.Group("/:id", portal.OwnerContainer())
	{
		owned.GET("", portal.HandleGetContainer)
		owned.DELETE("", portal.HandleDeleteContainer)

		owned.POST("/files", portal.HandleUploadFile)
		owned.GET("/files", portal.HandleListFiles)
		owned.DELETE("/files/:fileID", portal.HandleDeleteFile)
		owned.POST("/files/:fileID/comments", portal.HandleAddComment)

		owned.POST("/invoices", portal.HandleCreateInvoice)
		owned.GET("/invoices", portal.HandleListInvoices)
		owned.DELETE("/invoices/:invoiceID", portal.HandleDeleteInvoice)

		owned.POST("/tasks", portal.HandleCreateTask)
		owned.GET("/tasks", portal.HandleListTasks)
		owned.PATCH("/tasks/:taskID/status", portal.HandleUpdateTaskStatus)
		owned.DELETE("/tasks/:taskID", portal.HandleDeleteTask)

		owned.POST("/messages", portal.HandleSendMessage)
		owned.GET("/messages", portal.HandleListMessages)
	}

	// Guest routes: the share token stands in for credentials and the
	// room the guest can reach is fixed by it.
	guest := api.Group("/guest/:token", portal.GuestAccess())
	{
		guest.GET("", portal.HandleGetGuestContainer)

		guest.POST("/files", portal.HandleUploadFile)
		guest.GET("/files", portal.HandleListFiles)
		guest.DELETE("/files/:fileID", portal.HandleDeleteFile)
		guest.POST("/files/:fileID/comments", portal.HandleAddComment)

		guest.GET("/invoices", portal.HandleListInvoices)
		guest.POST("/invoices/:invoiceID/pay", portal.HandlePayInvoice)

		guest.POST("/tasks", portal.HandleCreateTask)
		guest.GET("/tasks", portal.HandleListTasks)
		guest.PATCH("/tasks/:taskID/status", portal.HandleUpdateTaskStatus)
		guest.DELETE("/tasks/:taskID", portal.HandleDeleteTask)

		guest.POST("/messages", portal.HandleSendMessage)
		guest.GET("/messages", portal.HandleListMessages)
	}

	notifications := api.Group("/notifications", auth.AuthMiddleware())
	{
		notifications.GET("", portal.HandleListNotifications)
		notifications.POST("/:notificationID/read", portal.HandleMarkNotificationRead)
		notifications.POST("/read_all", portal.HandleMarkAllNotificationsRead)
		notifications.DELETE("", portal.HandleClearNotifications)
	}
}
