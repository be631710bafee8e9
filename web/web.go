// Package web wires the catalog's HTTP server: routing, templates, sessions
// and the background jobs.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/bookshelf-app/bookshelf/config"
	"github.com/bookshelf-app/bookshelf/database"
	"github.com/bookshelf-app/bookshelf/logger"
	"github.com/bookshelf-app/bookshelf/util/common"
	"github.com/bookshelf-app/bookshelf/web/cache"
	"github.com/bookshelf-app/bookshelf/web/controller"
	"github.com/bookshelf-app/bookshelf/web/job"
	"github.com/bookshelf-app/bookshelf/web/locale"
	"github.com/bookshelf-app/bookshelf/web/middleware"
	"github.com/bookshelf-app/bookshelf/web/service"
	"github.com/bookshelf-app/bookshelf/web/session"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

//go:embed assets
var assetsFS embed.FS

//go:embed html/*
var htmlFS embed.FS

//go:embed translation/*
var i18nFS embed.FS

var startTime = time.Now()

type wrapAssetsFS struct {
	embed.FS
}

func (f *wrapAssetsFS) Open(name string) (fs.File, error) {
	file, err := f.FS.Open("assets/" + name)
	if err != nil {
		return nil, err
	}
	return &wrapAssetsFile{File: file}, nil
}

type wrapAssetsFile struct {
	fs.File
}

func (f *wrapAssetsFile) Stat() (fs.FileInfo, error) {
	info, err := f.File.Stat()
	if err != nil {
		return nil, err
	}
	return &wrapAssetsFileInfo{FileInfo: info}, nil
}

type wrapAssetsFileInfo struct {
	fs.FileInfo
}

// ModTime is pinned to process start so embedded assets get a stable Last-Modified.
func (f *wrapAssetsFileInfo) ModTime() time.Time {
	return startTime
}

// Server is the catalog web server. It owns no storage: the database handle
// and cache are passed in and outlive restarts.
type Server struct {
	httpServer *http.Server
	listener   net.Listener

	db    *gorm.DB
	cache *cache.Cache

	catalogService *service.CatalogService
	userService    *service.UserService
	settingService *service.SettingService
	authService    *service.AuthService
	panelService   *service.PanelService

	checkpoint *job.CheckpointJob
	cron       *cron.Cron
}

// NewServer builds a server and its services over db and c. c may be nil.
func NewServer(db *gorm.DB, c *cache.Cache) *Server {
	users := service.NewUserService(db)
	settings := service.NewSettingService(db)
	return &Server{
		db:             db,
		cache:          c,
		catalogService: service.NewCatalogService(db, c),
		userService:    users,
		settingService: settings,
		authService:    service.NewAuthService(users, settings),
		panelService:   service.NewPanelService(),
		checkpoint:     job.NewCheckpointJob(db),
	}
}

// getHtmlFiles walks the local web/html directory. Used only in debug mode so
// templates can be edited without a rebuild.
func (s *Server) getHtmlFiles() ([]string, error) {
	files := make([]string, 0)
	dir, _ := os.Getwd()
	err := fs.WalkDir(os.DirFS(dir), "web/html", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// getHtmlTemplate parses every directory of the embedded html tree.
func (s *Server) getHtmlTemplate(funcMap template.FuncMap) (*template.Template, error) {
	t := template.New("").Funcs(funcMap)
	err := fs.WalkDir(htmlFS, "html", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			newT, err := t.ParseFS(htmlFS, path+"/*.html")
			if err != nil {
				// ignore folders without matches
				return nil
			}
			t = newT
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// initRouter registers middleware, templates, static assets and controllers.
func (s *Server) initRouter() (*gin.Engine, error) {
	if config.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	if err := locale.InitLocalizer(i18nFS); err != nil {
		return nil, err
	}

	engine := gin.New()
	if err := middleware.TrustProxies(engine, config.GetTrustedProxies()); err != nil {
		return nil, err
	}
	engine.Use(gin.Recovery(), middleware.RequestID())

	secret, err := s.settingService.GetSecret()
	if err != nil {
		return nil, err
	}
	basePath, err := s.settingService.GetBasePath()
	if err != nil {
		return nil, err
	}

	// JSON responses are small; skip gzip on the API
	engine.Use(gzip.Gzip(
		gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{basePath + "api/"}),
	))

	if origins := config.GetAPIOrigins(); len(origins) > 0 {
		engine.Use(middleware.APICORS(basePath, origins))
	}

	store := cookie.NewStore(secret)
	store.Options(sessions.Options{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	engine.Use(sessions.Sessions(session.CookieName, store))
	engine.Use(locale.LocalizerMiddleware())
	engine.Use(func(c *gin.Context) {
		c.Set("base_path", basePath)
	})

	funcMap := template.FuncMap{
		"i18n":    locale.I18n,
		"isAdmin": s.userService.IsAdmin,
	}
	engine.SetFuncMap(funcMap)

	if config.IsDebug() {
		files, err := s.getHtmlFiles()
		if err != nil {
			return nil, err
		}
		engine.LoadHTMLFiles(files...)
		engine.StaticFS(basePath+"assets", http.FS(os.DirFS("web/assets")))
	} else {
		tpl, err := s.getHtmlTemplate(funcMap)
		if err != nil {
			return nil, err
		}
		engine.SetHTMLTemplate(tpl)
		engine.StaticFS(basePath+"assets", http.FS(&wrapAssetsFS{FS: assetsFS}))
	}

	// snake_case and plural spellings of the page routes
	engine.Use(middleware.RedirectMiddleware(basePath))

	g := engine.Group(basePath)
	controller.NewIndexController(g, s.userService, s.settingService, s.cache)
	controller.NewCatalogController(g, s.catalogService)
	controller.NewAdminController(g, s.catalogService, s.userService)
	controller.NewSettingController(g, s.settingService, s.userService, s.panelService)
	controller.NewAPIController(g, s.catalogService, s.authService, s.cache)

	engine.NoRoute(controller.NotFound)

	return engine, nil
}

// startTask schedules the background jobs.
func (s *Server) startTask() {
	if database.IsSQLite(s.db) {
		if _, err := s.cron.AddJob("@every 5m", s.checkpoint); err != nil {
			logger.Warning("add checkpoint job failed:", err)
		}
	}
}

// Start opens the listener and serves in the background.
func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			_ = s.Stop()
		}
	}()

	loc, err := s.settingService.GetTimeLocation()
	if err != nil {
		return err
	}
	s.cron = cron.New(cron.WithLocation(loc), cron.WithSeconds())
	s.cron.Start()

	engine, err := s.initRouter()
	if err != nil {
		return err
	}

	listen, err := s.settingService.GetListen()
	if err != nil {
		return err
	}
	port, err := s.settingService.GetPort()
	if err != nil {
		return err
	}

	listenAddr := net.JoinHostPort(listen, strconv.Itoa(port))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	logger.Info("Web server running HTTP on", listener.Addr())

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("web server stopped:", err)
		}
	}()

	s.startTask()
	return nil
}

// Stop shuts the server down. The database and cache stay open.
func (s *Server) Stop() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	var err1, err2 error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err1 = s.httpServer.Shutdown(ctx)
	}
	if s.listener != nil {
		err2 = s.listener.Close()
		if errors.Is(err2, net.ErrClosed) {
			err2 = nil
		}
	}
	return common.Combine(err1, err2)
}
