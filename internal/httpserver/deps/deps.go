package deps

import (
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/tracker/internal/channel"
	"github.com/MrSnakeDoc/tracker/internal/controller"
	"github.com/MrSnakeDoc/tracker/internal/logger"
	"github.com/MrSnakeDoc/tracker/internal/objectdb"
	"github.com/MrSnakeDoc/tracker/internal/worker"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string

	AllowedHosts   []string
	AllowedCIDRS   []string
	TrustProxy     bool
	RequestTimeout time.Duration
	RateBurst      int
	RatePerMin     int
	CORSOrigin     string

	// Page side
	Vacations *controller.Vacations
	Jokes     *controller.Jokes
	Pending   *controller.Pending

	// Worker side
	Worker *worker.Worker

	// Each event stream opens its own endpoint on this channel.
	Broker      channel.Broker
	ChannelName string

	Databases   []*objectdb.DB
	RedisClient *goredis.Client // nil when running on in-process backends
}
