package config

import (
	"log"
	"sync"

	"github.com/Jeffail/gabs"
)

const configFile = "config.json"

var (
	config *gabs.Container
	once   sync.Once
)

// Get returns config data with the given path.
// Config data is only allowed in string type.
// The config file is parsed on the first call.
func Get(path string) string {
	once.Do(load)
	return config.Path(path).Data().(string)
}

func load() {
	json, err := gabs.ParseJSONFile(configFile)
	if err != nil {
		log.Panic(err)
	}

	config = json
}
