package gtfs

// Row structs for the GTFS schedule tables, decoded straight from CSV.
// Fields the pipeline parses itself (times, dates, flags, sequence numbers)
// stay raw strings so parse failures can be reported with file/row context.

type Trip struct {
	ID          string `csv:"trip_id"`
	RouteID     string `csv:"route_id"`
	ServiceID   string `csv:"service_id"`
	ShapeID     string `csv:"shape_id"`
	Headsign    string `csv:"trip_headsign"`
	ShortName   string `csv:"trip_short_name"`
	DirectionID string `csv:"direction_id"`
	BlockID     string `csv:"block_id"`
}

type StopTime struct {
	TripID        string `csv:"trip_id"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	StopID        string `csv:"stop_id"`
	StopSequence  string `csv:"stop_sequence"`
	Headsign      string `csv:"stop_headsign"`
	PickupType    string `csv:"pickup_type"`
	DropOffType   string `csv:"drop_off_type"`
}

type Calendar struct {
	ServiceID string `csv:"service_id"`
	Monday    string `csv:"monday"`
	Tuesday   string `csv:"tuesday"`
	Wednesday string `csv:"wednesday"`
	Thursday  string `csv:"thursday"`
	Friday    string `csv:"friday"`
	Saturday  string `csv:"saturday"`
	Sunday    string `csv:"sunday"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
}

type CalendarDate struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType string `csv:"exception_type"`
}

type Frequency struct {
	TripID      string `csv:"trip_id"`
	StartTime   string `csv:"start_time"`
	EndTime     string `csv:"end_time"`
	HeadwaySecs string `csv:"headway_secs"`
	ExactTimes  string `csv:"exact_times"`
}

type ShapePoint struct {
	ShapeID      string  `csv:"shape_id"`
	Latitude     float64 `csv:"shape_pt_lat"`
	Longitude    float64 `csv:"shape_pt_lon"`
	Sequence     string  `csv:"shape_pt_sequence"`
	DistTraveled string  `csv:"shape_dist_traveled"`
}

type Stop struct {
	ID        string  `csv:"stop_id"`
	Code      string  `csv:"stop_code"`
	Name      string  `csv:"stop_name"`
	Latitude  float64 `csv:"stop_lat"`
	Longitude float64 `csv:"stop_lon"`
	Type      string  `csv:"location_type"`
	Parent    string  `csv:"parent_station"`
	Timezone  string  `csv:"stop_timezone"`
}

type Pathway struct {
	ID              string `csv:"pathway_id"`
	FromStopID      string `csv:"from_stop_id"`
	ToStopID        string `csv:"to_stop_id"`
	Mode            string `csv:"pathway_mode"`
	IsBidirectional string `csv:"is_bidirectional"`
	TraversalTime   string `csv:"traversal_time"`
}

// Values of Stop.Type.
// https://gtfs.org/reference/static/#stopstxt
const (
	LocationTypeStop         = "0" // stop or platform
	LocationTypeStation      = "1"
	LocationTypeEntranceExit = "2"
	LocationTypeGenericNode  = "3"
	LocationTypeBoardingArea = "4"
)

// Values of CalendarDate.ExceptionType.
const (
	ExceptionTypeAdded   = "1"
	ExceptionTypeRemoved = "2"
)
