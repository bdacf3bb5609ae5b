// Package config loads the connection settings of the Postgres and Redis backends from the environment.
package config
