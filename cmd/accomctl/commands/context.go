package commands

import (
	"accommodation-portal/internal/bootstrap"
)

// AppContext holds the dependencies shared by every command.
// App is populated by the root command's PersistentPreRunE.
type AppContext struct {
	App *bootstrap.App
}
