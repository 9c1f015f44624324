// Command iotbridge runs the MQTT-to-InfluxDB telemetry bridge.
package main

import "os"

func main() {
	os.Exit(Execute())
}
