package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bookshelf-app/bookshelf/config"
	"github.com/bookshelf-app/bookshelf/database"
	"github.com/bookshelf-app/bookshelf/database/model"
	"github.com/bookshelf-app/bookshelf/logger"
	"github.com/bookshelf-app/bookshelf/web"
	"github.com/bookshelf-app/bookshelf/web/cache"
	"github.com/bookshelf-app/bookshelf/web/service"

	"github.com/joho/godotenv"
	"github.com/op/go-logging"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func initLogger() {
	switch config.GetLogLevel() {
	case config.Debug:
		logger.InitLogger(logging.DEBUG)
	case config.Info:
		logger.InitLogger(logging.INFO)
	case config.Notice:
		logger.InitLogger(logging.NOTICE)
	case config.Warn:
		logger.InitLogger(logging.WARNING)
	case config.Error:
		logger.InitLogger(logging.ERROR)
	default:
		log.Fatal("unknown log level:", config.GetLogLevel())
	}
}

// openDB opens the configured store and creates the default accounts.
func openDB() (*gorm.DB, error) {
	dbConfig, err := config.GetDatabaseConfig()
	if err != nil {
		return nil, err
	}
	return database.InitDB(dbConfig, database.DefaultAccounts())
}

func runWebServer() {
	log.Printf("%v %v", config.GetName(), config.GetVersion())
	initLogger()
	defer logger.CloseLogger()

	db, err := openDB()
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := database.CloseDB(db); err != nil {
			logger.Warning("close db err:", err)
		}
	}()

	store, err := cache.New(config.GetRedisAddr())
	if err != nil {
		logger.Warning("cache disabled:", err)
	}
	defer func() { _ = store.Close() }()

	server := web.NewServer(db, store)
	if err := server.Start(); err != nil {
		log.Println(err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGTERM, os.Interrupt)
	for {
		sig := <-sigCh

		switch sig {
		case syscall.SIGHUP:
			logger.Info("Received SIGHUP signal. Restarting server...")
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			server = web.NewServer(db, store)
			if err := server.Start(); err != nil {
				log.Println(err)
				return
			}
		default:
			logger.Info("Shutting down server...")
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			return
		}
	}
}

// withDB runs fn against a freshly opened store and closes it afterwards.
func withDB(fn func(db *gorm.DB) error) {
	db, err := openDB()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	err = fn(db)
	if closeErr := database.CloseDB(db); closeErr != nil {
		logger.Warning("close db err:", closeErr)
	}
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func catalogCmd(use, short, done string, run func(s *service.CatalogService) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Run: func(cmd *cobra.Command, args []string) {
			withDB(func(db *gorm.DB) error {
				// only a shared Redis holds state the running server reads
				var store *cache.Cache
				if addr := config.GetRedisAddr(); addr != "" {
					var err error
					if store, err = cache.New(addr); err != nil {
						logger.Warning("cache disabled:", err)
					}
				}
				defer func() { _ = store.Close() }()
				if err := run(service.NewCatalogService(db, store)); err != nil {
					return err
				}
				fmt.Println(done)
				return nil
			})
		},
	}
}

func showSetting() {
	withDB(func(db *gorm.DB) error {
		allSetting, err := service.NewSettingService(db).GetAllSetting()
		if err != nil {
			return err
		}
		fmt.Println("current panel settings as follows:")
		fmt.Println("listen:", allSetting.WebListen)
		fmt.Println("port:", allSetting.WebPort)
		fmt.Println("basePath:", allSetting.WebBasePath)
		fmt.Println("sessionMaxAge:", allSetting.SessionMaxAge)
		fmt.Println("timeLocation:", allSetting.TimeLocation)
		return nil
	})
}

func resetSetting() {
	withDB(func(db *gorm.DB) error {
		if err := service.NewSettingService(db).ResetSettings(); err != nil {
			return fmt.Errorf("reset setting failed: %w", err)
		}
		fmt.Println("reset setting success")
		return nil
	})
}

func updateSetting(port int, listen string, basePath string) {
	withDB(func(db *gorm.DB) error {
		settingService := service.NewSettingService(db)
		if port > 0 {
			if err := settingService.SetPort(port); err != nil {
				return fmt.Errorf("set port failed: %w", err)
			}
			fmt.Printf("set port %v success\n", port)
		}
		if listen != "" {
			if err := settingService.SetListen(listen); err != nil {
				return fmt.Errorf("set listen failed: %w", err)
			}
			fmt.Printf("set listen %v success\n", listen)
		}
		if basePath != "" {
			if err := settingService.SetBasePath(basePath); err != nil {
				return fmt.Errorf("set base path failed: %w", err)
			}
			fmt.Printf("set base path %v success\n", basePath)
		}
		return nil
	})
}

func listUsers() {
	withDB(func(db *gorm.DB) error {
		users, err := service.NewUserService(db).ListUsers()
		if err != nil {
			return err
		}
		for _, u := range users {
			roles := make([]string, 0, len(u.Roles))
			for _, r := range u.RoleNames() {
				roles = append(roles, string(r))
			}
			fmt.Printf("%d\t%s\tactive=%v\t%s\n", u.Id, u.Email, u.Active, strings.Join(roles, ","))
		}
		return nil
	})
}

// changeRole grants or revokes role on the account registered under email.
func changeRole(email string, roleName string, grant bool) {
	withDB(func(db *gorm.DB) error {
		role, ok := model.ParseRoleName(roleName)
		if !ok {
			return fmt.Errorf("unknown role %q", roleName)
		}
		userService := service.NewUserService(db)
		user, err := userService.GetUserByEmail(email)
		if err != nil {
			return err
		}
		if grant {
			err = userService.GrantRole(user.Id, role)
		} else {
			err = userService.RevokeRole(user.Id, role)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s roles updated\n", user.Email)
		return nil
	})
}

func setPassword(email string, password string) {
	withDB(func(db *gorm.DB) error {
		userService := service.NewUserService(db)
		user, err := userService.GetUserByEmail(email)
		if err != nil {
			return err
		}
		if err := userService.UpdatePassword(user.Id, password); err != nil {
			return err
		}
		fmt.Printf("%s password updated\n", user.Email)
		return nil
	})
}

func deleteUser(email string) {
	withDB(func(db *gorm.DB) error {
		userService := service.NewUserService(db)
		user, err := userService.GetUserByEmail(email)
		if err != nil {
			return err
		}
		if err := userService.DeleteUser(user.Id); err != nil {
			return err
		}
		fmt.Printf("%s deleted\n", user.Email)
		return nil
	})
}

func main() {
	// optional; variables already in the environment win
	_ = godotenv.Load()

	var rootCmd = &cobra.Command{
		Use:   config.GetName(),
		Short: "Library catalog web application",
	}

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the web server",
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer()
		},
	}

	seedCmd := catalogCmd("seed", "Load the demo categories and books", "DB Seeded!",
		func(s *service.CatalogService) error { return s.SeedDemoData() })
	eraseCmd := catalogCmd("erase", "Delete every book and category", "DB Erased!",
		func(s *service.CatalogService) error { return s.EraseCatalog() })

	var settingCmd = &cobra.Command{
		Use:   "setting",
		Short: "Show or change panel settings",
	}

	var showCmd = &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Run: func(cmd *cobra.Command, args []string) {
			showSetting()
		},
	}

	var resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Reset all settings",
		Run: func(cmd *cobra.Command, args []string) {
			resetSetting()
		},
	}

	var updateCmd = &cobra.Command{
		Use:   "update",
		Short: "Update settings",
		Run: func(cmd *cobra.Command, args []string) {
			port, _ := cmd.Flags().GetInt("port")
			listen, _ := cmd.Flags().GetString("listen")
			basePath, _ := cmd.Flags().GetString("webBasePath")
			updateSetting(port, listen, basePath)
		},
	}
	updateCmd.Flags().Int("port", 0, "set panel port")
	updateCmd.Flags().String("listen", "", "set listen IP")
	updateCmd.Flags().String("webBasePath", "", "set base path for panel")

	settingCmd.AddCommand(showCmd, resetCmd, updateCmd)

	var userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage accounts and roles",
	}

	var listCmd = &cobra.Command{
		Use:   "list",
		Short: "List accounts with their roles",
		Run: func(cmd *cobra.Command, args []string) {
			listUsers()
		},
	}

	var grantCmd = &cobra.Command{
		Use:   "grant",
		Short: "Grant a role to an account",
		Run: func(cmd *cobra.Command, args []string) {
			email, _ := cmd.Flags().GetString("email")
			role, _ := cmd.Flags().GetString("role")
			changeRole(email, role, true)
		},
	}

	var revokeCmd = &cobra.Command{
		Use:   "revoke",
		Short: "Revoke a role from an account",
		Run: func(cmd *cobra.Command, args []string) {
			email, _ := cmd.Flags().GetString("email")
			role, _ := cmd.Flags().GetString("role")
			changeRole(email, role, false)
		},
	}

	for _, c := range []*cobra.Command{grantCmd, revokeCmd} {
		c.Flags().String("email", "", "account email")
		c.Flags().String("role", "", "role name (Admin, Agent)")
		_ = c.MarkFlagRequired("email")
		_ = c.MarkFlagRequired("role")
	}

	var passwordCmd = &cobra.Command{
		Use:   "password",
		Short: "Set an account's password",
		Run: func(cmd *cobra.Command, args []string) {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			setPassword(email, password)
		},
	}
	passwordCmd.Flags().String("email", "", "account email")
	passwordCmd.Flags().String("password", "", "new password")
	_ = passwordCmd.MarkFlagRequired("email")
	_ = passwordCmd.MarkFlagRequired("password")

	var deleteCmd = &cobra.Command{
		Use:   "delete",
		Short: "Delete an account",
		Run: func(cmd *cobra.Command, args []string) {
			email, _ := cmd.Flags().GetString("email")
			deleteUser(email)
		},
	}
	deleteCmd.Flags().String("email", "", "account email")
	_ = deleteCmd.MarkFlagRequired("email")

	userCmd.AddCommand(listCmd, grantCmd, revokeCmd, passwordCmd, deleteCmd)

	rootCmd.AddCommand(runCmd, seedCmd, eraseCmd, settingCmd, userCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
