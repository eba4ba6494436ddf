package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"Constituent/internal/handler"
	"Constituent/internal/middleware"
)

func Register(h *server.Hertz) {

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.RequestIDMiddleware())
	h.Use(middleware.CORSMiddleware())

	v1 := h.Group("/v1")

	// 联系人路由
	contacts := v1.Group("/contacts")
	{
		contacts.POST("", handler.CreateContact)
		contacts.GET("/:contact_id", handler.GetContact)
		contacts.PUT("/:contact_id", handler.UpdateContact)
	}

	// 姓名格式配置
	settings := v1.Group("/settings")
	{
		settings.GET("/name-format", handler.GetNameFormats)
		settings.PUT("/name-format/:name", handler.UpdateNameFormat)
	}

	// 前缀/后缀选项
	v1.GET("/options/:group", handler.ListOptions)
}
