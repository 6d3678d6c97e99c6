package backup

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"CareCompanion/pkg/errors"
	"CareCompanion/pkg/scheduler"

	"github.com/go-sql-driver/mysql"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const filePrefix = "carecompanion_backup_"

// Backup 按驱动导出交互记录库（chat_messages / check_ins / safety_events ...）
type Backup struct {
	Driver string
	DSN    string
	Dir    string
	Keep   int // 保留最近 N 份，<=0 不清理

	logger *zap.Logger
	now    func() time.Time
	// 测试替换
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

func New(driver, dsn, dir string, keep int, logger *zap.Logger) *Backup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backup{
		Driver:  driver,
		DSN:     dsn,
		Dir:     dir,
		Keep:    keep,
		logger:  logger,
		now:     time.Now,
		command: exec.CommandContext,
	}
}

// Schedule 注册到 cron，失败交给 cron 的 ErrorSink
func (b *Backup) Schedule(c *scheduler.Cron, expr string) (cron.EntryID, error) {
	return c.Add(expr, "database_backup", func(ctx context.Context) error {
		dst, err := b.Run(ctx)
		if err != nil {
			return err
		}
		b.logger.Info("backup completed", zap.String("file", dst))
		return nil
	})
}

// Run 执行一次备份，返回生成的文件路径
func (b *Backup) Run(ctx context.Context) (string, error) {
	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create backup directory")
	}
	stamp := b.now().Format("20060102_150405")

	var dst string
	var err error
	switch b.Driver {
	case "", "sqlite":
		dst = filepath.Join(b.Dir, filePrefix+stamp+".db")
		err = b.sqlite(dst)
	case "mysql":
		dst = filepath.Join(b.Dir, filePrefix+stamp+".sql")
		err = b.mysqldump(ctx, dst)
	case "pg", "postgres":
		dst = filepath.Join(b.Dir, filePrefix+stamp+".sql")
		err = b.dumpTo(ctx, dst, "pg_dump", "--dbname="+b.DSN, "--no-owner")
	default:
		return "", errors.Errorf("unsupported DB_DRIVER: %s", b.Driver)
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	if err := b.prune(); err != nil {
		b.logger.Warn("prune old backups", zap.Error(err))
	}
	return dst, nil
}

func (b *Backup) sqlite(dst string) error {
	src := strings.TrimPrefix(b.DSN, "file:")
	if i := strings.IndexByte(src, '?'); i >= 0 {
		src = src[:i]
	}
	if src == "" || src == ":memory:" {
		return errors.New("in-memory sqlite database cannot be backed up")
	}
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "open sqlite source")
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrap(err, "create backup file")
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrap(err, "copy sqlite data")
	}
	return out.Close()
}

func (b *Backup) mysqldump(ctx context.Context, dst string) error {
	cfg, err := mysql.ParseDSN(b.DSN)
	if err != nil {
		return errors.Wrap(err, "parse mysql dsn")
	}
	host, port, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		host, port = cfg.Addr, "3306"
	}
	args := []string{
		"--single-transaction",
		"-h", host,
		"-P", port,
		"-u", cfg.User,
		cfg.DBName,
	}
	cmd := b.command(ctx, "mysqldump", args...)
	// 密码走环境变量，避免出现在进程列表
	cmd.Env = append(os.Environ(), "MYSQL_PWD="+cfg.Passwd)
	return b.runTo(cmd, dst)
}

func (b *Backup) dumpTo(ctx context.Context, dst, name string, args ...string) error {
	return b.runTo(b.command(ctx, name, args...), dst)
}

func (b *Backup) runTo(cmd *exec.Cmd, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrap(err, "create backup file")
	}
	defer out.Close()
	var stderr strings.Builder
	cmd.Stdout = out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "%s failed: %s", filepath.Base(cmd.Path), strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (b *Backup) prune() error {
	if b.Keep <= 0 {
		return nil
	}
	files, err := b.List()
	if err != nil {
		return err
	}
	if len(files) <= b.Keep {
		return nil
	}
	for _, f := range files[:len(files)-b.Keep] {
		if err := os.Remove(f); err != nil {
			return fmt.Errorf("remove %s: %w", f, err)
		}
	}
	return nil
}

// List 已有备份，按时间升序
func (b *Backup) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(b.Dir, filePrefix+"*"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
