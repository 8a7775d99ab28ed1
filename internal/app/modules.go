package app

import (
	"io"

	"github.com/vk/taskgraph/internal/registry"
	"github.com/vk/taskgraph/modules/env_vars"
	"github.com/vk/taskgraph/modules/fail"
	"github.com/vk/taskgraph/modules/http_request"
	"github.com/vk/taskgraph/modules/print"
	"github.com/vk/taskgraph/modules/skip"
	"github.com/vk/taskgraph/modules/sleep"
	"github.com/vk/taskgraph/modules/sum"
	"github.com/vk/taskgraph/modules/value"
)

// CoreModules returns the modules compiled into the taskgraph binary. The
// print module writes to out.
func CoreModules(out io.Writer) []registry.Module {
	return []registry.Module{
		&value.Module{},
		&sum.Module{},
		&sleep.Module{},
		&fail.Module{},
		&skip.Module{},
		&print.Module{Out: out},
		&env_vars.Module{},
		&http_request.Module{},
	}
}
