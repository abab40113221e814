package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Running struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"running"`
	Mysql struct {
		// DSN 指向 MySQL 实例，库名会被替换成每个租户自己的库
		DSN            string `mapstructure:"dsn"`
		TenantDBFormat string `mapstructure:"tenant_db_format"`
		AutoProvision  bool   `mapstructure:"auto_provision"`
		MaxOpenConns   int    `mapstructure:"max_open_conns"`
	} `mapstructure:"mysql"`
	Redis struct {
		Addrs    []string `mapstructure:"addrs"`
		Password string   `mapstructure:"password"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	} `mapstructure:"kafka"`
	Auth struct {
		// Path 为空时使用本地 JWT 校验
		Path      string        `mapstructure:"path"`
		JWTSecret string        `mapstructure:"jwt_secret"`
		CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	} `mapstructure:"auth"`
}

// Load 读取 syncConfig.yaml，SYNC_ 前缀的环境变量可以覆盖文件里的值，
// 比如 SYNC_MYSQL_DSN。
func Load(paths ...string) (*Config, error) {
	cfg := &Config{}
	v := viper.New()
	v.SetConfigName("syncConfig")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		// 兼容从项目根目录或 backend 目录启动
		paths = []string{"./backend/config", "./config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetDefault("running.port", 3004)
	v.SetDefault("mysql.tenant_db_format", "space_%d")
	v.SetDefault("mysql.max_open_conns", 8)
	v.SetDefault("kafka.topic", "sync-commits")
	v.SetDefault("auth.jwt_secret", "dev-secret")
	v.SetDefault("auth.cache_ttl", 5*time.Minute)

	v.SetEnvPrefix("SYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
