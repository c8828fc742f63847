package router

import (
	"vstep-prep-backend/controller"
	"vstep-prep-backend/middleware"

	"github.com/gin-gonic/gin"
)

func Register() *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")
	{
		public := api.Group("/user")
		{
			public.POST("/register", controller.UserRegister)
			public.POST("/login", controller.UserLogin)
		}

		// Websocket clients authenticate with a token query param
		api.GET("/assistant/ws", controller.AssistantRelay)

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.GET("/user/profile", controller.GetProfile)
			protected.PUT("/user/profile", controller.UpdateProfile)

			protected.POST("/session", controller.CreateSession)
			protected.GET("/sessions", controller.GetSessions)
			protected.DELETE("/session/:id", controller.DeleteSession)
			protected.GET("/session/:id/messages", controller.GetSessionMessages)
			protected.PUT("/session/:id/title", controller.UpdateSessionTitle)

			protected.POST("/chat", controller.AgentChat)

			protected.POST("/quiz/attempt", controller.CreateAttempt)
			protected.GET("/quiz/attempt/:id", controller.GetAttempt)
			protected.PUT("/quiz/attempt/:id/answers", controller.UpdateAnswers)
			protected.POST("/quiz/attempt/:id/submit", controller.SubmitAttempt)
			protected.POST("/quiz/attempt/:id/clone", controller.CloneAttempt)
			protected.GET("/quiz/attempt/:id/validate", controller.ValidateAttempt)
			protected.GET("/quiz/history", controller.GetQuizHistory)
			protected.GET("/quiz/latest", controller.GetLatestAttempt)

			protected.POST("/speaking/recording", controller.UploadRecording)
			protected.GET("/speaking/attempt/:id/recordings", controller.GetRecordings)

			protected.GET("/oss/policy-token", controller.GetPolicyToken)
			protected.GET("/material/metadata", controller.GetMaterials)
			protected.POST("/material/metadata", controller.UploadMaterialMetadata)
			protected.DELETE("/material/metadata", controller.DeleteMaterial)
			protected.GET("/material/download-link", controller.GetPresignedURL)
		}
	}

	return r
}
