package routemetrics

// GroupInput selects one route group.
type GroupInput struct {
	Group string `path:"group" doc:"Route group, the first path segment after /api and version" example:"analytics" pattern:"^[a-z0-9_-]+$" maxLength:"64"`
}

// WindowInput selects one route group and a look-back window.
type WindowInput struct {
	GroupInput
	Hours int `query:"hours" doc:"Look-back window in hours" default:"24" minimum:"1" maximum:"720" example:"24"`
}
