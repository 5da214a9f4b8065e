package routes

const version = "v1"

// Base returns the versioned API base path.
func Base() string {
	return "/api/" + version
}

func Videos() string { return Base() + "/videos" }

func Health() string { return "/healthz" }
