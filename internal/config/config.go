package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Selectors are the CSS selectors the navigator looks up. They change whenever the site
// reshuffles its markup, so they live in config rather than code.
type Selectors struct {
	LoginUsername string `mapstructure:"LOGIN_USERNAME"`
	LoginPassword string `mapstructure:"LOGIN_PASSWORD"`
	LoginSubmit   string `mapstructure:"LOGIN_SUBMIT"`
	ProfileIcon   string `mapstructure:"PROFILE_ICON"`

	UserPostList      string `mapstructure:"USER_POST_LIST"`
	UserPostItem      string `mapstructure:"USER_POST_ITEM"`
	PostItemLink      string `mapstructure:"POST_ITEM_LINK"`
	PostItemThumbnail string `mapstructure:"POST_ITEM_THUMBNAIL"`
	PostItemLikeCount string `mapstructure:"POST_ITEM_LIKE_COUNT"`

	VideoDetailAnchor  string `mapstructure:"VIDEO_DETAIL_ANCHOR"`
	VideoCaption       string `mapstructure:"VIDEO_CAPTION"`
	VideoNickname      string `mapstructure:"VIDEO_NICKNAME"`
	VideoPostTime      string `mapstructure:"VIDEO_POST_TIME"`
	VideoAudioLink     string `mapstructure:"VIDEO_AUDIO_LINK"`
	VideoLikeCount     string `mapstructure:"VIDEO_LIKE_COUNT"`
	VideoCommentCount  string `mapstructure:"VIDEO_COMMENT_COUNT"`
	VideoCollectCount  string `mapstructure:"VIDEO_COLLECT_COUNT"`
	VideoShareCount    string `mapstructure:"VIDEO_SHARE_COUNT"`
	CreatorTab         string `mapstructure:"CREATOR_TAB"`
	CreatorTabList     string `mapstructure:"CREATOR_TAB_LIST"`
	CreatorTabItem     string `mapstructure:"CREATOR_TAB_ITEM"`
	CreatorItemThumb   string `mapstructure:"CREATOR_ITEM_THUMBNAIL"`
	CreatorItemPlayCnt string `mapstructure:"CREATOR_ITEM_PLAY_COUNT"`
}

type Config struct {
	Platform string `mapstructure:"PLATFORM"`
	BaseURL  string `mapstructure:"BASE_URL"`

	CrawlMode          string `mapstructure:"CRAWL_MODE"`
	IdentityID         int64  `mapstructure:"IDENTITY_ID"`
	MaxVideosPerTarget int    `mapstructure:"MAX_VIDEOS_PER_TARGET"`
	MaxTargetsPerRun   int    `mapstructure:"MAX_TARGETS_PER_RUN"`
	Recrawl            bool   `mapstructure:"RECRAWL"`

	PacingEnabled        bool   `mapstructure:"PACING_ENABLED"`
	PacingMinMs          int    `mapstructure:"PACING_MIN_MS"`
	PacingMaxMs          int    `mapstructure:"PACING_MAX_MS"`
	PageWaitTimeoutSec   int    `mapstructure:"PAGE_WAIT_TIMEOUT_SEC"`
	LoginWaitTimeoutSec  int    `mapstructure:"LOGIN_WAIT_TIMEOUT_SEC"`
	ScrollMaxRounds      int    `mapstructure:"SCROLL_MAX_ROUNDS"`
	NotFoundTitlePattern string `mapstructure:"NOT_FOUND_TITLE_PATTERN"`
	MetricsAddr          string `mapstructure:"METRICS_ADDR"`
	APIAddr              string `mapstructure:"API_ADDR"`

	StoreBackend string `mapstructure:"STORE_BACKEND"`
	SQLitePath   string `mapstructure:"SQLITE_PATH"`
	MySQLDSN     string `mapstructure:"MYSQL_DSN"`
	PostgresDSN  string `mapstructure:"POSTGRES_DSN"`
	MongoURI     string `mapstructure:"MONGO_URI"`
	MongoDB      string `mapstructure:"MONGO_DB"`

	CacheBackend        string `mapstructure:"CACHE_BACKEND"`
	CacheDefaultTTLSec  int    `mapstructure:"CACHE_DEFAULT_TTL_SEC"`
	SessionCookieTTLSec int    `mapstructure:"SESSION_COOKIE_TTL_SEC"`
	RedisAddr           string `mapstructure:"REDIS_ADDR"`
	RedisPassword       string `mapstructure:"REDIS_PASSWORD"`
	RedisDB             int    `mapstructure:"REDIS_DB"`
	RedisKeyPrefix      string `mapstructure:"REDIS_KEY_PREFIX"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	HttpTimeoutSec       int `mapstructure:"HTTP_TIMEOUT_SEC"`
	HttpRetryCount       int `mapstructure:"HTTP_RETRY_COUNT"`
	HttpRetryBaseDelayMs int `mapstructure:"HTTP_RETRY_BASE_DELAY_MS"`
	HttpRetryMaxDelayMs  int `mapstructure:"HTTP_RETRY_MAX_DELAY_MS"`

	EnableIPProxy       bool   `mapstructure:"ENABLE_IP_PROXY"`
	IPProxyPoolCount    int    `mapstructure:"IP_PROXY_POOL_COUNT"`
	IPProxyProviderName string `mapstructure:"IP_PROXY_PROVIDER_NAME"`
	IPProxyList         string `mapstructure:"IP_PROXY_LIST"`
	IPProxyFile         string `mapstructure:"IP_PROXY_FILE"`
	KDLSecretID         string `mapstructure:"KDL_SECRET_ID"`
	KDLSignature        string `mapstructure:"KDL_SIGNATURE"`
	KDLUserName         string `mapstructure:"KDL_USER_NAME"`
	KDLUserPwd          string `mapstructure:"KDL_USER_PWD"`

	Headless             bool   `mapstructure:"HEADLESS"`
	SaveLoginState       bool   `mapstructure:"SAVE_LOGIN_STATE"`
	EnableCDPMode        bool   `mapstructure:"ENABLE_CDP_MODE"`
	CDPDebugPort         int    `mapstructure:"CDP_DEBUG_PORT"`
	CustomBrowserPath    string `mapstructure:"CUSTOM_BROWSER_PATH"`
	CDPHeadless          bool   `mapstructure:"CDP_HEADLESS"`
	BrowserLaunchTimeout int    `mapstructure:"BROWSER_LAUNCH_TIMEOUT"`
	AutoCloseBrowser     bool   `mapstructure:"AUTO_CLOSE_BROWSER"`
	UserDataDir          string `mapstructure:"USER_DATA_DIR"`
	StealthScriptPath    string `mapstructure:"STEALTH_SCRIPT_PATH"`
	BrowserLanguage      string `mapstructure:"BROWSER_LANGUAGE"`

	Selectors Selectors `mapstructure:"SELECTORS"`
}

var AppConfig Config

func LoadConfig(path string) error {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	SetDefaults(viper.GetViper())

	viper.SetEnvPrefix("TIKTOK_CRAWLER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return err
	}
	Normalize(&AppConfig)
	return nil
}

// Default returns a Config populated with defaults only, ignoring files and env.
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	Normalize(&cfg)
	return cfg
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("PLATFORM", "tiktok")
	v.SetDefault("BASE_URL", "https://www.tiktok.com")
	v.SetDefault("CRAWL_MODE", "both")
	v.SetDefault("IDENTITY_ID", 0)
	v.SetDefault("MAX_VIDEOS_PER_TARGET", 50)
	v.SetDefault("MAX_TARGETS_PER_RUN", 10)
	v.SetDefault("RECRAWL", false)

	v.SetDefault("PACING_ENABLED", true)
	v.SetDefault("PACING_MIN_MS", 1000)
	v.SetDefault("PACING_MAX_MS", 3000)
	v.SetDefault("PAGE_WAIT_TIMEOUT_SEC", 10)
	v.SetDefault("LOGIN_WAIT_TIMEOUT_SEC", 60)
	v.SetDefault("SCROLL_MAX_ROUNDS", 10)
	v.SetDefault("NOT_FOUND_TITLE_PATTERN", `(?i)(couldn't find this account|account not found|このアカウントは見つかりませんでした)`)
	v.SetDefault("METRICS_ADDR", "")
	v.SetDefault("API_ADDR", ":8080")

	v.SetDefault("STORE_BACKEND", "sqlite")
	v.SetDefault("SQLITE_PATH", "data/tiktok_crawler.db")
	v.SetDefault("MYSQL_DSN", "")
	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("MONGO_URI", "")
	v.SetDefault("MONGO_DB", "tiktok_crawler")

	v.SetDefault("CACHE_BACKEND", "memory")
	v.SetDefault("CACHE_DEFAULT_TTL_SEC", 600)
	v.SetDefault("SESSION_COOKIE_TTL_SEC", 7*24*3600)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "tiktok_crawler:")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("HTTP_TIMEOUT_SEC", 30)
	v.SetDefault("HTTP_RETRY_COUNT", 3)
	v.SetDefault("HTTP_RETRY_BASE_DELAY_MS", 500)
	v.SetDefault("HTTP_RETRY_MAX_DELAY_MS", 4000)

	v.SetDefault("ENABLE_IP_PROXY", false)
	v.SetDefault("IP_PROXY_POOL_COUNT", 2)
	v.SetDefault("IP_PROXY_PROVIDER_NAME", "static")
	v.SetDefault("IP_PROXY_LIST", "")
	v.SetDefault("IP_PROXY_FILE", "")
	v.SetDefault("KDL_SECRET_ID", "")
	v.SetDefault("KDL_SIGNATURE", "")
	v.SetDefault("KDL_USER_NAME", "")
	v.SetDefault("KDL_USER_PWD", "")

	v.SetDefault("HEADLESS", false)
	v.SetDefault("SAVE_LOGIN_STATE", true)
	v.SetDefault("ENABLE_CDP_MODE", false)
	v.SetDefault("CDP_DEBUG_PORT", 9222)
	v.SetDefault("CUSTOM_BROWSER_PATH", "")
	v.SetDefault("CDP_HEADLESS", false)
	v.SetDefault("BROWSER_LAUNCH_TIMEOUT", 60)
	v.SetDefault("AUTO_CLOSE_BROWSER", true)
	v.SetDefault("USER_DATA_DIR", "browser_data")
	v.SetDefault("STEALTH_SCRIPT_PATH", "")
	v.SetDefault("BROWSER_LANGUAGE", "ja-JP")

	v.SetDefault("SELECTORS.LOGIN_USERNAME", "input[name='username']")
	v.SetDefault("SELECTORS.LOGIN_PASSWORD", "input[type='password']")
	v.SetDefault("SELECTORS.LOGIN_SUBMIT", "button[type='submit']")
	v.SetDefault("SELECTORS.PROFILE_ICON", "[data-e2e='profile-icon']")

	v.SetDefault("SELECTORS.USER_POST_LIST", "[data-e2e='user-post-item-list']")
	v.SetDefault("SELECTORS.USER_POST_ITEM", "[data-e2e='user-post-item']")
	v.SetDefault("SELECTORS.POST_ITEM_LINK", "a")
	v.SetDefault("SELECTORS.POST_ITEM_THUMBNAIL", "img")
	v.SetDefault("SELECTORS.POST_ITEM_LIKE_COUNT", "[data-e2e='video-like-count'], strong[class*='StrongLikeCount']")

	v.SetDefault("SELECTORS.VIDEO_DETAIL_ANCHOR", "[data-e2e='browse-video-desc']")
	v.SetDefault("SELECTORS.VIDEO_CAPTION", "[data-e2e='browse-video-desc']")
	v.SetDefault("SELECTORS.VIDEO_NICKNAME", "[data-e2e='browser-nickname'] span:first-child")
	v.SetDefault("SELECTORS.VIDEO_POST_TIME", "[data-e2e='browser-nickname'] span:last-child")
	v.SetDefault("SELECTORS.VIDEO_AUDIO_LINK", "[data-e2e='browse-music'] a")
	v.SetDefault("SELECTORS.VIDEO_LIKE_COUNT", "[data-e2e='browse-like-count']")
	v.SetDefault("SELECTORS.VIDEO_COMMENT_COUNT", "[data-e2e='browse-comment-count']")
	v.SetDefault("SELECTORS.VIDEO_COLLECT_COUNT", "[data-e2e='undefined-count']")
	v.SetDefault("SELECTORS.VIDEO_SHARE_COUNT", "[data-e2e='share-count']")
	v.SetDefault("SELECTORS.CREATOR_TAB", "[class*='DivTabMenuContainer'] [class*='DivTabItem']:nth-child(2)")
	v.SetDefault("SELECTORS.CREATOR_TAB_LIST", "[class*='DivVideoListContainer']")
	v.SetDefault("SELECTORS.CREATOR_TAB_ITEM", "[class*='DivVideoListContainer'] [class*='DivItemContainer']")
	v.SetDefault("SELECTORS.CREATOR_ITEM_THUMBNAIL", "img")
	v.SetDefault("SELECTORS.CREATOR_ITEM_PLAY_COUNT", "[class*='DivPlayCount'], [data-e2e='video-views']")
}

func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Platform = strings.ToLower(strings.TrimSpace(cfg.Platform))
	cfg.CrawlMode = strings.ToLower(strings.TrimSpace(cfg.CrawlMode))
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(cfg.CacheBackend))
	cfg.IPProxyProviderName = strings.ToLower(strings.TrimSpace(cfg.IPProxyProviderName))
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.PacingMaxMs < cfg.PacingMinMs {
		cfg.PacingMaxMs = cfg.PacingMinMs
	}
}
