package database

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
)

type Opts struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	LogLevel           string
	// SQL 日志输出；nil 时写 stdout
	Writer *log.Logger
}

var ErrUnsupportedDriver = errors.New("database: unsupported driver")

func NewGorm(o Opts) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch o.Driver {
	case "postgres":
		dial = postgres.Open(o.DSN)
	case "mysql":
		dial = mysql.Open(normalizeMySQLDSN(o.DSN, o.Username, o.Password))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, o.Driver)
	}

	w := o.Writer
	if w == nil {
		w = log.New(os.Stdout, "\r\n", log.LstdFlags)
	}
	gl := logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLogLevel(o.LogLevel),
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})

	db, err := gorm.Open(dial, &gorm.Config{Logger: gl, TranslateError: true})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(o.MaxOpenConns)
	sqlDB.SetMaxIdleConns(o.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(o.ConnMaxLifetimeMin) * time.Minute)
	db = db.
		Session(&gorm.Session{
			PrepareStmt:            true, // 预编译缓存
			CreateBatchSize:        200,
			SkipDefaultTransaction: true, // 多表写入时手动开 Tx
		})
	return db, nil
}

func gormLogLevel(s string) logger.LogLevel {
	switch strings.ToLower(s) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// jdbcParams JDBC/Navicat 连接串参数到 go-sql-driver 参数的映射；空串表示丢弃
var jdbcParams = map[string]string{
	"characterEncoding":    "charset",
	"serverTimezone":       "loc",
	"useSSL":               "tls",
	"useUnicode":           "",
	"zeroDateTimeBehavior": "",
}

func sslToTLS(v string) string {
	switch strings.ToLower(v) {
	case "true", "1":
		return "true"
	case "skip-verify", "preferred":
		return strings.ToLower(v)
	}
	return "false"
}

// normalizeMySQLDSN 把 mysql:// 或 jdbc:mysql:// 形式改写为 user:pass@tcp(host)/db?...
// 原生 DSN 原样返回；user/pass 非空时覆盖连接串中的账号
func normalizeMySQLDSN(input, user, pass string) string {
	in := strings.TrimPrefix(strings.TrimSpace(input), "jdbc:")
	if !strings.HasPrefix(in, "mysql://") {
		return strings.TrimSpace(input)
	}
	u, err := url.Parse(in)
	if err != nil {
		return in
	}

	q := u.Query()
	cred := url.Values{}
	if u.User != nil {
		cred.Set("user", u.User.Username())
		if pw, ok := u.User.Password(); ok {
			cred.Set("password", pw)
		}
	}
	for _, k := range []string{"user", "password"} {
		if v := q.Get(k); v != "" {
			cred.Set(k, v)
		}
		q.Del(k)
	}
	if user != "" {
		cred.Set("user", user)
	}
	if pass != "" {
		cred.Set("password", pass)
	}

	for from, to := range jdbcParams {
		v := q.Get(from)
		q.Del(from)
		if v == "" || to == "" || q.Get(to) != "" {
			continue
		}
		if from == "useSSL" {
			v = sslToTLS(v)
		}
		q.Set(to, v)
	}
	if q.Get("parseTime") == "" {
		q.Set("parseTime", "true")
	}
	if q.Get("charset") == "" {
		q.Set("charset", "utf8mb4")
	}

	var b strings.Builder
	if name := cred.Get("user"); name != "" || cred.Get("password") != "" {
		b.WriteString(name)
		if pw := cred.Get("password"); pw != "" {
			b.WriteString(":" + pw)
		}
		b.WriteString("@")
	}
	fmt.Fprintf(&b, "tcp(%s)/%s", u.Host, strings.TrimPrefix(u.Path, "/"))
	if enc := q.Encode(); enc != "" {
		b.WriteString("?" + enc)
	}
	return b.String()
}
