// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	articlesfeature "github.com/dalemusser/helphub/internal/app/features/articles"
	backupfeature "github.com/dalemusser/helphub/internal/app/features/backup"
	errorsfeature "github.com/dalemusser/helphub/internal/app/features/errors"
	groupsfeature "github.com/dalemusser/helphub/internal/app/features/groups"
	healthfeature "github.com/dalemusser/helphub/internal/app/features/health"
	articlestore "github.com/dalemusser/helphub/internal/app/store/articles"
	backupstore "github.com/dalemusser/helphub/internal/app/store/backup"
	groupstore "github.com/dalemusser/helphub/internal/app/store/groups"
	userstore "github.com/dalemusser/helphub/internal/app/store/users"
	"github.com/dalemusser/helphub/internal/app/system/bodycipher"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. HelpHub builds the cipher and the
// stores here and mounts the JSON feature routers: health, articles,
// groups, and the administrative backup surface.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	key, err := bodycipher.KeyFromConfig(appCfg.ArticleKeyHex, appCfg.ArticleKeyPassphrase)
	if err != nil {
		logger.Error("article key setup failed", zap.Error(err))
		return nil, err
	}
	cipher, err := bodycipher.New(key)
	if err != nil {
		logger.Error("article cipher setup failed", zap.Error(err))
		return nil, err
	}

	db := deps.HelpHubMongoDatabase
	groups := groupstore.New(db)
	users := userstore.New(db)
	articles := articlestore.New(db, groups, cipher, logger)
	pipeline := backupstore.NewPipeline(articles, cipher, logger)

	// Create error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)

	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.HelpHubMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	articlesHandler := articlesfeature.NewHandler(articles, errLog, logger)
	r.Mount("/articles", articlesfeature.Routes(articlesHandler))

	groupsHandler := groupsfeature.NewHandler(groups, users, errLog, logger)
	r.Mount("/groups", groupsfeature.Routes(groupsHandler))

	// Administrative bulk export/import; the fronting layer restricts
	// who can reach /admin.
	backupHandler := backupfeature.NewHandler(pipeline, appCfg.BackupDir, errLog, logger)
	r.Mount("/admin", backupfeature.Routes(backupHandler))

	return r, nil
}
