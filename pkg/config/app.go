package config

import "time"

var AppVersion = "DEVELOPMENT"

const (
	AppName               = "flashprep"
	LogFile               = "flashprep.log"
	CfgFile               = "config.toml"
	AuthFile              = "auth.toml"
	UserDir               = "user"
	CatalogRequestTimeout = 30 * time.Second
)
