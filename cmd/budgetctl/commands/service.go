package commands

import (
	"github.com/rongwang/budget-server/internal/config"
	"github.com/rongwang/budget-server/internal/repository"
	"github.com/rongwang/budget-server/internal/service"
)

// openService connects to postgres and returns a service plus its closer
func openService() (service.Service, func(), error) {
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	repo := repository.NewPostgresRepository(db)
	svc := service.NewDefaultService(repo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger)
	return svc, func() { db.Close() }, nil
}
