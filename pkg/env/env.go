package env

import "os"

const envKey = "ENVIRONMENT"

// GetEnvironment returns the current value of the ENVIRONMENT variable.
// It is read on every call so a daemon picks up the value set by its unit file or .env.
func GetEnvironment() string {
	return os.Getenv(envKey)
}

// IsDevelopment returns true if the current environment is set to "development".
func IsDevelopment() bool {
	return GetEnvironment() == "development"
}

// IsProduction returns true if the current environment is set to "production".
func IsProduction() bool {
	return GetEnvironment() == "production"
}

// IsRemote returns true when running on a printer host rather than a workstation,
// i.e. "production" or "development". Remote hosts log JSON.
func IsRemote() bool {
	return IsProduction() || IsDevelopment()
}

// IsLocal returns true if the environment is unset or explicitly "local".
func IsLocal() bool {
	e := GetEnvironment()
	return e == "" || e == "local"
}
