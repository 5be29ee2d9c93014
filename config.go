package main

type Config struct {
	HTTPPort               string
	DBUsername             string
	DBPassword             string
	DBPort                 string
	DBHost                 string
	DBName                 string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	CacheTTLMinutes        int // bucket TTL, defaults to 120
	RefreshIntervalMinutes int // how often the refresh cycle runs, defaults to 60
	SourceTimeoutSeconds   int // per-source fetch timeout, defaults to 5
	FetchWorkers           int // bound on concurrent source calls, defaults to source count
	FastForexAPIKey        string
}
