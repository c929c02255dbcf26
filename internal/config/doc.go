// Package config loads and saves the gt125 configuration file.
//
// The file is YAML and describes one gateway, the devices paired with it,
// the installation's location and the options of serve mode. It lives in a
// platform-appropriate directory unless a path is given explicitly:
//   - Linux: $XDG_CONFIG_HOME/gt125/config.yaml or $HOME/.config/gt125/config.yaml
//   - macOS: $HOME/.config/gt125/config.yaml
//   - Windows: %LOCALAPPDATA%\gt125\config.yaml
//
// # Example
//
//	version: 1
//	gateway:
//	  host: 192.168.1.50
//	  api_id: EFCDAB8967452301
//	  api_key: 0011223344556677
//	devices:
//	  - id: 2e320100
//	    name: Living room
//	    type: 10
//	location:
//	  timezone: America/Montreal
//	  latitude: 45.5
//	  longitude: -73.6
//
// The API key authenticates every session with the gateway. Files are written
// with user-only permissions; when the key is absent it can be prompted on a
// terminal instead of being stored.
package config
