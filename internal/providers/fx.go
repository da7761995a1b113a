package providers

import (
	"github.com/smallbiznis/chaseless/internal/providers/email"
	"github.com/smallbiznis/chaseless/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
