// Command seed loads the sample course catalogue into MongoDB.
package main

import (
	"context"
	"time"

	"teemarker/config"
	"teemarker/database"
	"teemarker/database/repository"
	"teemarker/database/seed"
	"teemarker/utils"

	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	defer func() { _ = database.MongoClient.Disconnect(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.DB()
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Fatal("seed: failed to create indexes", zap.Error(err))
	}

	created, err := seed.Courses(ctx, repository.NewMongoCourseRepo(db))
	if err != nil {
		logger.Fatal("seed: failed to seed courses", zap.Error(err))
	}
	logger.Info("seed: sample courses loaded", zap.Int("created", created))
}
