package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/theeman05/SWEN-261-StudentUFund/internal/models"
	"github.com/theeman05/SWEN-261-StudentUFund/internal/store"
)

func main() {
	addAdminCmd := flag.NewFlagSet("add-admin", flag.ExitOnError)
	adminUsername := addAdminCmd.String("username", "", "Username for the new admin")
	adminPassword := addAdminCmd.String("password", "", "Password for the new admin")

	addNeedCmd := flag.NewFlagSet("add-need", flag.ExitOnError)
	needName := addNeedCmd.String("name", "", "Name of the need")
	needCost := addNeedCmd.String("cost", "", "Cost per unit, e.g. 12.50")
	needQuantity := addNeedCmd.Int("quantity", 0, "Units needed")

	if len(os.Args) < 2 {
		fmt.Println("expected 'add-admin' or 'add-need' subcommand")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add-admin":
		addAdminCmd.Parse(os.Args[2:])
		if *adminUsername == "" || *adminPassword == "" {
			fmt.Println("username and password are required")
			addAdminCmd.PrintDefaults()
			os.Exit(1)
		}
		createAdmin(*adminUsername, *adminPassword)
	case "add-need":
		addNeedCmd.Parse(os.Args[2:])
		if *needName == "" || *needCost == "" || *needQuantity <= 0 {
			fmt.Println("name, cost and a positive quantity are required")
			addNeedCmd.PrintDefaults()
			os.Exit(1)
		}
		createNeed(*needName, *needCost, *needQuantity)
	default:
		fmt.Println("expected 'add-admin' or 'add-need' subcommand")
		os.Exit(1)
	}
}

func openStore() *store.Store {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./ufund.db"
	}

	db, err := store.NewStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	// Ensure tables exist if running cli before server
	if err := db.InitSchema(); err != nil {
		log.Fatalf("Failed to init schema: %v", err)
	}
	return db
}

func createAdmin(username, password string) {
	db := openStore()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	if err := db.CreateUser(username, string(hashedPassword), models.RoleAdmin); err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}

	fmt.Printf("Admin '%s' created successfully.\n", username)
}

func createNeed(name, cost string, quantity int) {
	db := openStore()

	unitCost, err := decimal.NewFromString(cost)
	if err != nil {
		log.Fatalf("Invalid cost %q: %v", cost, err)
	}
	if unitCost.IsNegative() {
		log.Fatalf("Cost must not be negative")
	}

	need := &models.Need{Name: name, Cost: unitCost, Quantity: quantity}
	if err := db.CreateNeed(need); err != nil {
		log.Fatalf("Failed to create need: %v", err)
	}

	fmt.Printf("Need '%s' created successfully.\n", name)
}
