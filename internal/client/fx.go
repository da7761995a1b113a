package client

import (
	"github.com/smallbiznis/chaseless/internal/client/repository"
	"github.com/smallbiznis/chaseless/internal/client/service"
	"go.uber.org/fx"
)

var Module = fx.Module("client.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
