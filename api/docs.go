package api

// @title clipwatch API
// @version v1.0.0
// @description Manage traffic rules, match history, settings and connected page clients.

// @host localhost:8778
// @BasePath /api
// @schemes http
