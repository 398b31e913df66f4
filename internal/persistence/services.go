package persistence

import (
	"github.com/zhulik/pal"

	"skyfed/internal/core"
)

func Provide() pal.ServiceDef {
	return pal.ProvideList(
		pal.Provide(&DB{}),
		pal.Provide[core.Store](&Store{}),
	)
}
