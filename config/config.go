package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de la red de agentes.
type Config struct {
	Limits  LimitsConfig  `yaml:"limits"`
	Network NetworkConfig `yaml:"network"`
	Nodes   NodesConfig   `yaml:"nodes"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// LimitsConfig son los límites constitucionales de la red.
// Se cargan una vez en el arranque y nunca se mutan en runtime.
type LimitsConfig struct {
	MaxDailyLossPercent     float64 `yaml:"max_daily_loss_percent"`
	MaxNodeCapitalPercent   float64 `yaml:"max_node_capital_percent"`
	ReservePercent          float64 `yaml:"reserve_percent"`
	MinProfitToSpawn        float64 `yaml:"min_profit_to_spawn"`
	MaxNodesWithoutApproval int     `yaml:"max_nodes_without_approval"`
	CompoundPercent         float64 `yaml:"compound_percent"`
	DistributionPercent     float64 `yaml:"distribution_percent"`
}

// NetworkConfig controla el capital génesis y el loop autónomo.
type NetworkConfig struct {
	GenesisCapital  float64 `yaml:"genesis_capital"`
	ReserveStart    float64 `yaml:"reserve_start"`
	SeedNodeCapital float64 `yaml:"seed_node_capital"`
	SpawnThreshold  float64 `yaml:"spawn_threshold"`  // capital mínimo para spawns oportunistas
	SpawnCapitalCap float64 `yaml:"spawn_capital_cap"` // techo en USD del capital de un spawn automático
	IntervalSeconds int     `yaml:"interval_seconds"`
	DataDir         string  `yaml:"data_dir"`
}

// NodesConfig agrupa los perfiles por especialidad.
type NodesConfig struct {
	Crypto NodeProfileConfig `yaml:"crypto"`
	Stock  NodeProfileConfig `yaml:"stock"`
}

// NodeProfileConfig son las constantes de sizing y filtrado de una
// especialidad. Son configuración heredada, sin derivación algorítmica.
type NodeProfileConfig struct {
	TradeFraction float64  `yaml:"trade_fraction"` // fracción del capital del nodo por trade
	MaxTradeUSD   float64  `yaml:"max_trade_usd"`
	WinReturn     float64  `yaml:"win_return"`
	LossReturn    float64  `yaml:"loss_return"`
	MinConfidence float64  `yaml:"min_confidence"`
	Watchlist     []string `yaml:"watchlist"`
}

// APIConfig contiene los base URLs de las APIs externas.
type APIConfig struct {
	CoinGeckoBase string `yaml:"coingecko_base"`
}

// StorageConfig controla dónde se persiste el histórico.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Si path está vacío devuelve la configuración por defecto.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CycleInterval devuelve el intervalo entre ciclos como time.Duration.
func (c *Config) CycleInterval() time.Duration {
	return time.Duration(c.Network.IntervalSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("SWARM_DATA_DIR"); v != "" {
		cfg.Network.DataDir = v
	}
	if v := os.Getenv("COINGECKO_BASE"); v != "" {
		cfg.API.CoinGeckoBase = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Limits.MaxDailyLossPercent <= 0 {
		cfg.Limits.MaxDailyLossPercent = 2.0
	}
	if cfg.Limits.MaxNodeCapitalPercent <= 0 {
		// Valor heredado: 35. Hay una nota de producto abierta que pide 10;
		// hasta que se resuelva, se aplica el valor configurado.
		cfg.Limits.MaxNodeCapitalPercent = 35.0
	}
	if cfg.Limits.ReservePercent <= 0 {
		cfg.Limits.ReservePercent = 20.0
	}
	if cfg.Limits.MinProfitToSpawn <= 0 {
		cfg.Limits.MinProfitToSpawn = 50.0
	}
	if cfg.Limits.MaxNodesWithoutApproval <= 0 {
		cfg.Limits.MaxNodesWithoutApproval = 5
	}
	if cfg.Limits.CompoundPercent <= 0 {
		cfg.Limits.CompoundPercent = 50.0
	}
	if cfg.Limits.DistributionPercent <= 0 {
		cfg.Limits.DistributionPercent = 50.0
	}

	if cfg.Network.GenesisCapital <= 0 {
		cfg.Network.GenesisCapital = 100.0
	}
	if cfg.Network.ReserveStart <= 0 {
		cfg.Network.ReserveStart = 20.0
	}
	if cfg.Network.SeedNodeCapital <= 0 {
		cfg.Network.SeedNodeCapital = 30.0
	}
	if cfg.Network.SpawnThreshold <= 0 {
		cfg.Network.SpawnThreshold = 50.0
	}
	if cfg.Network.SpawnCapitalCap <= 0 {
		cfg.Network.SpawnCapitalCap = 20.0
	}
	if cfg.Network.IntervalSeconds <= 0 {
		cfg.Network.IntervalSeconds = 1800
	}
	if cfg.Network.DataDir == "" {
		cfg.Network.DataDir = "data"
	}

	setProfileDefaults(&cfg.Nodes.Crypto, NodeProfileConfig{
		TradeFraction: 0.20,
		MaxTradeUSD:   50,
		WinReturn:     0.02,
		LossReturn:    0.01,
		MinConfidence: 0.70,
		Watchlist:     []string{"bitcoin", "ethereum", "solana", "cardano"},
	})
	setProfileDefaults(&cfg.Nodes.Stock, NodeProfileConfig{
		TradeFraction: 0.15,
		MaxTradeUSD:   30,
		WinReturn:     0.015,
		LossReturn:    0.005,
		MinConfidence: 0.75,
		Watchlist:     []string{"AAPL", "MSFT", "GOOGL", "TSLA", "NVDA"},
	})

	if cfg.API.CoinGeckoBase == "" {
		cfg.API.CoinGeckoBase = "https://api.coingecko.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "swarmbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func setProfileDefaults(p *NodeProfileConfig, def NodeProfileConfig) {
	if p.TradeFraction <= 0 {
		p.TradeFraction = def.TradeFraction
	}
	if p.MaxTradeUSD <= 0 {
		p.MaxTradeUSD = def.MaxTradeUSD
	}
	if p.WinReturn <= 0 {
		p.WinReturn = def.WinReturn
	}
	if p.LossReturn <= 0 {
		p.LossReturn = def.LossReturn
	}
	if p.MinConfidence <= 0 {
		p.MinConfidence = def.MinConfidence
	}
	if len(p.Watchlist) == 0 {
		p.Watchlist = def.Watchlist
	}
}

// validate rechaza combinaciones sin sentido antes de arrancar la red.
func validate(cfg *Config) error {
	if cfg.Limits.CompoundPercent+cfg.Limits.DistributionPercent != 100 {
		return fmt.Errorf("config.Load: compound_percent + distribution_percent debe ser 100, es %.1f",
			cfg.Limits.CompoundPercent+cfg.Limits.DistributionPercent)
	}
	if cfg.Limits.MaxNodeCapitalPercent > 100 {
		return fmt.Errorf("config.Load: max_node_capital_percent > 100")
	}
	if cfg.Limits.ReservePercent > 100 {
		return fmt.Errorf("config.Load: reserve_percent > 100")
	}
	return nil
}
