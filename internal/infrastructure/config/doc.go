// Package config loads maa-core configuration.
//
// Values come from built-in defaults, then the YAML file, then MAACORE_*
// environment variables, and are checked by Validate. A missing default
// config file is not an error for the caller that asks for Default instead.
//
// Keep the MQTT password and InfluxDB token out of the file; set
// MAACORE_MQTT_PASSWORD and MAACORE_INFLUXDB_TOKEN.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	for _, d := range cfg.Devices {
//	    // attach d.UUID at d.Address
//	}
package config
