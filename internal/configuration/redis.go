package configuration

import (
	"errors"
	"fmt"
)

// Redis locates the shared cache tier. Username and password stay empty
// for an auth-less deployment.
type Redis struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

func (r *Redis) Validate() error {
	if r.Host == "" {
		return errors.New("redis host is required")
	}
	if r.Port == 0 {
		return errors.New("redis port is required")
	}
	return nil
}

func (r *Redis) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
