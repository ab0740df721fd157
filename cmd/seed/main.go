package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oksasatya/go-auth-otp-service/config"
	"github.com/oksasatya/go-auth-otp-service/internal/infrastructure/mongodb"
	"github.com/oksasatya/go-auth-otp-service/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	client, db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoConnTimeout)
	if err != nil {
		log.Fatalf("failed to connect to mongodb: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("failed to ensure indexes: %v", err)
	}

	email := "demo@example.com"
	password := "password123"
	name := "demoUser"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	res, err := db.Collection("users").UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{
			"$set":         bson.M{"name": name, "password": hash, "role": "admin"},
			"$setOnInsert": bson.M{"createdAt": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}

	if res.UpsertedID != nil {
		fmt.Printf("seeded user: id=%v email=%s name=%s password=%s\n", res.UpsertedID, email, name, password)
	} else {
		fmt.Printf("updated existing user: email=%s name=%s\n", email, name)
	}
}
