package properties

import (
	"os"
	"path/filepath"
)

func RootPath() string {
	return os.Getenv("ROOT_PATH")
}

// DataPath joins elem under <ROOT_PATH>/data, or ./data when ROOT_PATH is unset.
func DataPath(elem ...string) string {
	root := RootPath()
	if root == "" {
		root = "."
	}
	return filepath.Join(append([]string{root, "data"}, elem...)...)
}

type Color struct {
	R, G, B uint8
}

// ColorMap is the palette used for mask previews.
var ColorMap = map[string]Color{
	"shadow":    {255, 0, 0},
	"clear":     {34, 139, 34},
	"undefined": {128, 128, 128},
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}

func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}
