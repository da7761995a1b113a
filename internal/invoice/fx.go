package invoice

import (
	"github.com/smallbiznis/chaseless/internal/invoice/repository"
	"github.com/smallbiznis/chaseless/internal/invoice/sequence"
	"github.com/smallbiznis/chaseless/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(sequence.Provide),
	fx.Provide(service.New),
)
