// Seeds an operator account for the API.
// cmd/create-user/main.go
package main

import (
	"flag"
	"log"
	"time"

	"hospital-bulk-api/config"
	"hospital-bulk-api/controllers"
	"hospital-bulk-api/models"

	"github.com/joho/godotenv"
)

func main() {
	email := flag.String("email", "", "operator email (required)")
	password := flag.String("password", "", "initial password (required)")
	name := flag.String("name", "", "full name")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("Usage: create-user -email <email> -password <password> [-name <full name>]")
	}

	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize database
	config.InitDB()

	if err := config.DB.AutoMigrate(&models.User{}); err != nil {
		log.Fatal("Failed to migrate users table:", err)
	}

	var existing models.User
	if err := config.DB.Where("email = ?", *email).First(&existing).Error; err == nil {
		log.Fatalf("User %s already exists", *email)
	}

	hashed, err := controllers.HashPassword(*password)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}

	now := time.Now()
	user := models.User{
		Email:    *email,
		FullName: *name,
		Password: hashed,
		CreateAt: &now,
		UpdateAt: &now,
	}

	if err := config.DB.Create(&user).Error; err != nil {
		log.Fatal("Failed to create user:", err)
	}

	log.Printf("Created operator account %s (user_id=%d)", user.Email, user.UserID)
}
