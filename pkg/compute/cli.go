// Package compute exposes the processing pipeline as CLI commands, reading
// a feed directory or zip archive and writing newline-delimited JSON to
// stdout.
package compute

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/gtfskit/gtfskit/pkg/alternatives"
	"github.com/gtfskit/gtfskit/pkg/calendar"
	"github.com/gtfskit/gtfskit/pkg/connections"
	"github.com/gtfskit/gtfskit/pkg/feed"
	"github.com/gtfskit/gtfskit/pkg/pathways"
	"github.com/gtfskit/gtfskit/pkg/redis_client"
	"github.com/gtfskit/gtfskit/pkg/schedules"
	"github.com/gtfskit/gtfskit/pkg/stopovers"
	"github.com/gtfskit/gtfskit/pkg/store"
	"github.com/gtfskit/gtfskit/pkg/trajectories"
)

var feedFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "feed",
		Usage:    "path to the feed, a directory or a zip archive",
		Required: true,
	},
	&cli.StringFlag{
		Name:  "timezone",
		Usage: "the feed's default IANA timezone",
		Value: "Europe/London",
	},
	&cli.BoolFlag{
		Name:  "redis",
		Usage: "back the schedule store with Redis instead of memory",
	},
}

func openFeed(c *cli.Context) (feed.Reader, func() error, error) {
	path := c.String("feed")
	if strings.HasSuffix(path, ".zip") {
		rd, err := feed.NewZipReader(path)
		if err != nil {
			return nil, nil, err
		}
		return rd, rd.Close, nil
	}
	return feed.NewDirReader(path), func() error { return nil }, nil
}

func scheduleStore(c *cli.Context) (store.Store[schedules.Schedule], error) {
	if !c.Bool("redis") {
		return store.NewMemory[schedules.Schedule](), nil
	}
	if err := redis_client.Connect(); err != nil {
		return nil, err
	}
	return store.NewRedis[schedules.Schedule](redis_client.Client), nil
}

func emit(out *json.Encoder, v any) error {
	return out.Encode(v)
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "compute",
		Usage: "Derive normalized representations from a feed",
		Subcommands: []*cli.Command{
			schedulesCommand(),
			connectionsCommand(),
			sortedConnectionsCommand(),
			serviceBreaksCommand(),
			stopoversCommand(),
			trajectoriesCommand(),
			pathwaysCommand(),
			optimiseCalendarCommand(),
			alternativesCommand(),
		},
	}
}

func schedulesCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedules",
		Usage: "deduplicate trips into schedules",
		Flags: feedFlags,
		Action: func(c *cli.Context) error {
			rd, closeFeed, err := openFeed(c)
			if err != nil {
				return err
			}
			defer closeFeed()

			st, err := scheduleStore(c)
			if err != nil {
				return err
			}
			defer st.Close(c.Context)

			st, err = schedules.Compute(c.Context, rd, feed.Filters{}, schedules.Options{Store: st})
			if err != nil {
				return err
			}

			out := json.NewEncoder(os.Stdout)
			for schedule, err := range st.Values(c.Context) {
				if err != nil {
					return err
				}
				if err := emit(out, schedule); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func connectionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "connections",
		Usage: "expand trips into trip-relative connections",
		Flags: feedFlags,
		Action: func(c *cli.Context) error {
			rd, closeFeed, err := openFeed(c)
			if err != nil {
				return err
			}
			defer closeFeed()

			out := json.NewEncoder(os.Stdout)
			for batch, err := range connections.Compute(rd, feed.Filters{}) {
				if err != nil {
					return err
				}
				for _, conn := range batch {
					if err := emit(out, conn); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
}

func sortedConnectionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sorted-connections",
		Usage: "resolve connections against the calendar, sorted by departure",
		Flags: feedFlags,
		Action: func(c *cli.Context) error {
			rd, closeFeed, err := openFeed(c)
			if err != nil {
				return err
			}
			defer closeFeed()

			out := json.NewEncoder(os.Stdout)
			sorted := connections.ComputeSorted(c.Context, rd, feed.Filters{}, connections.SortedOptions{
				Timezone: c.String("timezone"),
			})
			for conn, err := range sorted {
				if err != nil {
					return err
				}
				if err := emit(out, conn); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func serviceBreaksCommand() *cli.Command {
	return &cli.Command{
		Name:  "service-breaks",
		Usage: "find gaps in service per stop pair",
		Flags: append([]cli.Flag{
			&cli.Int64Flag{
				Name:  "min-gap",
				Usage: "smallest gap reported, in seconds",
				Value: 600,
			},
		}, feedFlags...),
		Action: func(c *cli.Context) error {
			rd, closeFeed, err := openFeed(c)
			if err != nil {
				return err
			}
			defer closeFeed()

			sorted := connections.ComputeSorted(c.Context, rd, feed.Filters{}, connections.SortedOptions{
				Timezone: c.String("timezone"),
			})
			breaks := connections.ServiceBreaks(c.Context, sorted, connections.BreaksOptions{
				MinLength: c.Int64("min-gap"),
			})

			out := json.NewEncoder(os.Stdout)
			for brk, err := range breaks {
				if err != nil {
					return err
				}
				if err := emit(out, brk); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func stopoversCommand() *cli.Command {
	return &cli.Command{
		Name:  "stopovers",
		Usage: "resolve every halt of every trip against the calendar",
		Flags: feedFlags,
		Action: func(c *cli.Context) error {
			rd, closeFeed, err := openFeed(c)
			if err != nil {
				return err
			}
			defer closeFeed()

			out := json.NewEncoder(os.Stdout)
			all := stopovers.Compute(c.Context, rd, feed.Filters{}, stopovers.Options{
				Timezone: c.String("timezone"),
			})
			for s, err := range all {
				if err != nil {
					return err
				}
				if err := emit(out, s); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func trajectoriesCommand() *cli.Command {
	return &cli.Command{
		Name:  "trajectories",
		Usage: "align schedules with their shapes",
		Flags: feedFlags,
		Action: func(c *cli.Context) error {
			rd, closeFeed, err := openFeed(c)
			if err != nil {
				return err
			}
			defer closeFeed()

			st, err := scheduleStore(c)
			if err != nil {
				return err
			}
			defer st.Close(c.Context)

			out := json.NewEncoder(os.Stdout)
			all := trajectories.Compute(c.Context, rd, feed.Filters{}, trajectories.Options{
				Schedules: st,
			})
			for tr, err := range all {
				if err != nil {
					return err
				}
				if err := emit(out, tr); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// pathwayEdge is the flat JSON form of one station graph edge; the graph
// itself is cyclic and cannot be marshalled directly.
type pathwayEdge struct {
	PathwayID string `json:"pathwayId"`
	FromStop  string `json:"fromStop"`
	ToStop    string `json:"toStop"`
}

type stationGraph struct {
	StationID string        `json:"stationId"`
	StartStop string        `json:"startStop"`
	Edges     []pathwayEdge `json:"edges"`
}

func pathwaysCommand() *cli.Command {
	return &cli.Command{
		Name:  "pathways",
		Usage: "reconstruct per-station pathway graphs",
		Flags: feedFlags,
		Action: func(c *cli.Context) error {
			rd, closeFeed, err := openFeed(c)
			if err != nil {
				return err
			}
			defer closeFeed()

			out := json.NewEncoder(os.Stdout)
			for graph, err := range pathways.Read(c.Context, rd, feed.Filters{}) {
				if err != nil {
					return err
				}
				flat := stationGraph{StationID: graph.StationID}
				if graph.Start != nil {
					flat.StartStop = graph.Start.ID
				}
				for _, node := range graph.Nodes {
					for toStop, edges := range node.ConnectedTo {
						for pwID := range edges {
							flat.Edges = append(flat.Edges, pathwayEdge{
								PathwayID: pwID,
								FromStop:  node.ID,
								ToStop:    toStop,
							})
						}
					}
				}
				if err := emit(out, flat); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func optimiseCalendarCommand() *cli.Command {
	return &cli.Command{
		Name:  "optimise-calendar",
		Usage: "rewrite services into minimal calendar rows and exceptions",
		Flags: feedFlags,
		Action: func(c *cli.Context) error {
			rd, closeFeed, err := openFeed(c)
			if err != nil {
				return err
			}
			defer closeFeed()

			out := json.NewEncoder(os.Stdout)
			for optimised, err := range calendar.Optimise(rd, feed.Filters{}, calendar.ReadOptions{}) {
				if err != nil {
					return err
				}
				if err := emit(out, optimised); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func alternativesCommand() *cli.Command {
	return &cli.Command{
		Name:  "alternatives",
		Usage: "find alternative trips between two stops within a time window",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "departure stop ID", Required: true},
			&cli.StringFlag{Name: "to", Usage: "arrival stop ID", Required: true},
			&cli.TimestampFlag{
				Name:     "not-before",
				Usage:    "earliest departure, RFC 3339",
				Layout:   time.RFC3339,
				Required: true,
			},
			&cli.TimestampFlag{
				Name:     "not-after",
				Usage:    "latest arrival, RFC 3339",
				Layout:   time.RFC3339,
				Required: true,
			},
		}, feedFlags...),
		Action: func(c *cli.Context) error {
			rd, closeFeed, err := openFeed(c)
			if err != nil {
				return err
			}
			defer closeFeed()

			services, err := calendar.ReadServices(rd, feed.Filters{}, calendar.ReadOptions{})
			if err != nil {
				return err
			}

			st, err := scheduleStore(c)
			if err != nil {
				return err
			}
			defer st.Close(c.Context)

			st, err = schedules.Compute(c.Context, rd, feed.Filters{}, schedules.Options{Store: st})
			if err != nil {
				return err
			}

			finder, err := alternatives.NewFinder(c.Context, rd, c.String("timezone"), services, st)
			if err != nil {
				return err
			}

			found := finder.Find(
				c.Context,
				c.String("from"), c.Timestamp("not-before").Unix(),
				c.String("to"), c.Timestamp("not-after").Unix(),
			)

			out := json.NewEncoder(os.Stdout)
			n := 0
			for alt, err := range found {
				if err != nil {
					return err
				}
				n++
				if err := emit(out, alt); err != nil {
					return err
				}
			}
			log.Info().Int("alternatives", n).Msg("Search finished")
			return nil
		},
	}
}
