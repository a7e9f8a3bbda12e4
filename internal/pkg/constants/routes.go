package constants

// Static route constants
const (
	APIRoute = "/api/v1"

	ParkingInRoute       = "/parking/in/validate"
	ParkingOutRoute      = "/parking/out/validate"
	ParkingRegisterRoute = "/parking/register"

	DeviceSocketRoute = "/ws/devices"
)
