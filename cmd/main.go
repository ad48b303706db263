package main

import (
	"context"
	"log"

	"github.com/kyleolivo/viet-food/config"
	"github.com/kyleolivo/viet-food/logger"
	"github.com/kyleolivo/viet-food/routes"
	"github.com/kyleolivo/viet-food/services"
	"github.com/kyleolivo/viet-food/utils"
)

func main() {
	config.LoadEnv()
	logger.Init()
	config.InitDB()
	utils.InitS3()

	ctx := context.Background()
	moderator, err := services.NewModerationService(ctx)
	if err != nil {
		log.Fatalf("Failed to init moderation service: %v", err)
	}
	vision, err := services.NewVisionService(ctx)
	if err != nil {
		log.Fatalf("Failed to init vision service: %v", err)
	}

	r := routes.SetupRouter(routes.Deps{
		DB:        config.DB,
		Moderator: moderator,
		Vision:    vision,
		Upload:    utils.UploadImageToS3,
	})
	r.Run(":8080")
}
