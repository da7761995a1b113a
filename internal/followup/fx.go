package followup

import (
	"github.com/smallbiznis/chaseless/internal/followup/repository"
	"github.com/smallbiznis/chaseless/internal/followup/service"
	"go.uber.org/fx"
)

var Module = fx.Module("followup.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
