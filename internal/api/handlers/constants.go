package handlers

const (
	maxListPageSize = 100 // Maximum page size for stored generation listings
)
