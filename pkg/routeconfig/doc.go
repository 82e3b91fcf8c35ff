// Package routeconfig loads route definition trees from YAML.
//
// A route file lists nested routes:
//
//	routes:
//	  - path: /
//	    component: home
//	  - path: /users
//	    meta:
//	      auth: true
//	    children:
//	      - path: ":id"
//	        component: user
//
// Files are read from the local filesystem or from S3 (s3://bucket/key).
// Component names are handed to the router unchanged unless a Registry
// resolves them. A Watcher reloads a local file whenever it changes.
package routeconfig
