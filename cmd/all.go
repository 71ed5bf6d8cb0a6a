package cmd

import (
	_ "imc-manager/cmd/diagram"
	_ "imc-manager/cmd/events"
	_ "imc-manager/cmd/files"
	_ "imc-manager/cmd/fleet"
	_ "imc-manager/cmd/metrics"
	_ "imc-manager/cmd/misc"
	_ "imc-manager/cmd/pipeline"
	_ "imc-manager/cmd/root"
	_ "imc-manager/cmd/server"
	_ "imc-manager/cmd/service"
	_ "imc-manager/cmd/watch"
)
