package config

import "os"

func IsDebug() bool {
	return os.Getenv("RYOSA_DEBUG") == "1"
}
