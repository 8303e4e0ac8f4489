package model

// DestinationFallback is where clients with an unrecognized role are sent:
// back to login rather than into any role's surface.
const DestinationFallback = "/login"

// destinations maps each role to its post-login client destination.
var destinations = map[Role]string{
	RoleAdmin:          "/admin/dashboard",
	RoleRestaurant:     "/restaurant/dashboard",
	RoleCustomer:       "/home",
	RoleDeliveryPerson: "/delivery/dashboard",
}

// DestinationFor returns the post-login destination for a role. The
// mapping is total: every known role has an entry and anything else gets
// DestinationFallback, so callers never see an undefined result.
func DestinationFor(r Role) string {
	if d, ok := destinations[r]; ok {
		return d
	}
	return DestinationFallback
}
