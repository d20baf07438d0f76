package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"sentryfw/config"
	"sentryfw/handlers"
	"sentryfw/models"
	"sentryfw/services"
	"sentryfw/system"
)

const version = "1.0.0"

const banner = `
   _____            __             ______      __
  / ___/___  ____  / /________  __/ ____/ | /| / /
  \__ \/ _ \/ __ \/ __/ ___/ / / / /_   | |/ |/ /
 ___/ /  __/ / / / /_/ /  / /_/ / __/   |  /|  /
/____/\___/_/ /_/\__/_/   \__, /_/      |_/ |_/
                         /____/

SentryFW - DDoS/DoS Protection Firewall
`

func main() {
	ifaceFlag := flag.String("i", "", "network interface to monitor (interactive selection if not specified)")
	configFlag := flag.String("c", config.DefaultPath, "configuration file path")
	createConfig := flag.Bool("create-config", false, "create a sample configuration file and exit")
	showStats := flag.Bool("stats", false, "show network interfaces and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	verbose := flag.Bool("v", false, "enable verbose (debug) logging")
	mock := flag.Bool("mock", false, "do not touch the host firewall, log enforcement commands instead")
	noAPI := flag.Bool("no-api", false, "disable the HTTP management API")
	flag.Parse()

	if *showVersion {
		fmt.Printf("SentryFW %s\n", version)
		return
	}

	if *createConfig {
		if err := config.WriteSample(*configFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Sample configuration created at %s\n", *configFlag)
		fmt.Println("Edit this file to customize your firewall settings.")
		return
	}

	if *showStats {
		printInterfaces()
		return
	}

	fmt.Print(banner)

	// Configuration is required; a missing or incomplete file is a fatal
	// startup error with an actionable template.
	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		fmt.Fprintf(os.Stderr, "Create %s with the following template:\n\n%s\n\n%s\n", *configFlag, config.Template(), config.Explain())
		os.Exit(1)
	}

	logLevel := system.ParseLogLevel(cfg.LogLevel)
	if *verbose {
		logLevel = system.LevelDebug
	}
	if err := system.InitLogger("./logs", logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not initialize file logger: %v\n", err)
	}
	defer system.Close()

	system.Info("SentryFW %s starting...", version)

	// Event store. Optional: detection and blocking run fine without it.
	var db *gorm.DB
	dbPath := cfg.DatabasePath
	if dbPath == "" {
		dbPath = "sentryfw.db"
	}
	db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		system.Warn("Event store unavailable (%v), continuing without persistence", err)
		db = nil
	} else {
		if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
			system.Warn("Failed to enable WAL mode: %v", err)
		}
		if err := db.AutoMigrate(&models.AttackEvent{}, &models.Admin{}); err != nil {
			system.Warn("Event store migration failed (%v), continuing without persistence", err)
			db = nil
		} else {
			system.Info("Event store ready: %s", dbPath)
		}
	}

	iface := *ifaceFlag
	if iface == "" {
		iface = selectInterface()
	}

	// Services
	executor := system.NewExecutor(*mock || os.Getenv("SENTRYFW_MOCK") != "")
	backend, err := system.NewEnforcementBackend(executor)
	if err != nil {
		system.Error("%v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	system.Info("Enforcement backend: %s", backend.Name())

	geoip := services.NewGeoIPService(cfg.GeoIPDatabase)
	defer geoip.Close()

	webhook := services.NewWebhookService()
	if cfg.DiscordWebhookURL != "" {
		webhook.SetWebhookURL(cfg.DiscordWebhookURL)
		system.Info("Discord webhook configured")
	}

	whitelist := services.NewWhitelist(cfg.Whitelist)
	blocker := services.NewBlocker(backend, whitelist, cfg.BlockFor())
	blocker.SetServices(db, webhook, geoip)

	fw := services.NewFirewall(cfg, iface, whitelist, blocker)

	// Management API
	var app *fiber.App
	if !*noAPI {
		listen := cfg.APIListen
		if listen == "" {
			listen = ":8089"
		}
		app = fiber.New(fiber.Config{DisableStartupMessage: true})
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		}))
		app.Use(cors.New())
		handlers.NewHandler(db, fw, webhook).RegisterRoutes(app)

		go func() {
			system.Info("Management API listening on %s", listen)
			if err := app.Listen(listen); err != nil {
				system.Warn("Management API stopped: %v", err)
			}
		}()
	}

	// Graceful shutdown: first signal stops cleanly, a second one during
	// shutdown exits immediately without finishing cleanup.
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		system.Info("Signal %v received, shutting down...", sig)
		go func() {
			<-sigs
			system.Error("Second signal received, exiting immediately")
			os.Exit(1)
		}()
		fw.Stop()
		if app != nil {
			_ = app.Shutdown()
		}
	}()

	fmt.Printf("Interface: %s\n", iface)
	fmt.Printf("Block duration: %d seconds\n", cfg.BlockDuration)
	fmt.Printf("Whitelist: %d entries\n", whitelist.Size())
	fmt.Println("Monitoring for DDoS/DoS attacks... Press Ctrl+C to stop")

	if webhook.IsEnabled() {
		go webhook.SendSystemAlert("🚀 SentryFW Started",
			fmt.Sprintf("Monitoring interface **%s**", iface), services.ColorGreen)
	}

	if err := fw.Start(); err != nil {
		system.Error("Fatal: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Packet capture requires elevated privileges. Run with sudo on Unix or as Administrator on Windows.")
		os.Exit(1)
	}

	fw.Stop()
	if webhook.IsEnabled() {
		webhook.SendSystemAlert("🛑 SentryFW Stopped", "Firewall shut down cleanly", services.ColorOrange)
	}
}

// selectInterface asks the operator to pick a capture device when none was
// given on the command line.
func selectInterface() string {
	available, err := services.ListInterfaces()
	if err != nil || len(available) == 0 {
		fallback := system.GetDefaultInterface()
		fmt.Printf("Could not enumerate capture devices, using %s\n", fallback)
		return fallback
	}

	if len(available) == 1 {
		fmt.Printf("Using interface: %s\n", available[0])
		return available[0]
	}

	fmt.Println("\nSelect a network interface to monitor:")
	for i, name := range available {
		fmt.Printf("  %d. %s\n", i+1, name)
	}
	fmt.Println("  0. Exit")

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("Enter your choice (0-%d): ", len(available))
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nExiting.")
			os.Exit(0)
		}
		choice, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			fmt.Println("Invalid input. Please enter a number.")
			continue
		}
		if choice == 0 {
			fmt.Println("Exiting.")
			os.Exit(0)
		}
		if choice >= 1 && choice <= len(available) {
			fmt.Printf("Selected interface: %s\n", available[choice-1])
			return available[choice-1]
		}
		fmt.Printf("Invalid choice. Please enter a number between 0 and %d.\n", len(available))
	}
}

func printInterfaces() {
	fmt.Println("=== Network Interfaces ===")
	available, err := services.ListInterfaces()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, name := range available {
		fmt.Printf("  %s\n", name)
	}
	fmt.Printf("\nDefault interface: %s\n", system.GetDefaultInterface())
}
