// Package config loads navkit process configuration.
//
// Values are layered, highest priority first: command-line flags bound
// with BindFlags, NAVKIT_ environment variables (NAVKIT_SERVER_ADDR for
// server.addr), the configuration file, then defaults.
//
// # Configuration File Structure
//
//	base: /app
//	routes: routes.yaml        # or s3://bucket/key
//	cache_size: 100
//	guard_timeout: 5s
//	timeout_policy: fail-open  # or fail-closed
//	watch: true
//	log:
//	  level: info
//	  format: text             # text, json or logfmt
//	server:
//	  addr: ":8080"
//	  read_limit: 16384
//	  pop_rate: 20
//	  hash: false
//	s3:
//	  region: eu-west-1
//	  endpoint: ""
//
// # Usage
//
//	cfg, err := config.Load(viper.New(), "")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
