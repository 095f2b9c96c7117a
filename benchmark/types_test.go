package benchmark

type Config struct {
	Host string
	Port int
}

type Logger struct {
	Level string
}

type Database struct {
	Config *Config `inject:""`
	Logger *Logger `inject:""`
}

type Cache struct {
	Logger *Logger `inject:""`
}

type Repository struct {
	DB    *Database `inject:""`
	Cache *Cache    `inject:""`
}

type Service struct {
	Repo   *Repository `inject:""`
	Logger *Logger     `inject:""`
}

func newConfig() *Config { return &Config{Host: "localhost", Port: 8080} }

func newLogger() *Logger { return &Logger{Level: "info"} }

func newDatabase(cfg *Config, log *Logger) *Database { return &Database{Config: cfg, Logger: log} }

func newCache(log *Logger) *Cache { return &Cache{Logger: log} }

func newRepository(db *Database, cache *Cache) *Repository { return &Repository{DB: db, Cache: cache} }

func newService(repo *Repository, log *Logger) *Service { return &Service{Repo: repo, Logger: log} }
