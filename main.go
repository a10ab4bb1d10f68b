package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ByLCY/quire/definition"
	"github.com/ByLCY/quire/layout"
	"github.com/ByLCY/quire/records"
	"github.com/ByLCY/quire/renderer"
	canvasrenderer "github.com/ByLCY/quire/renderer/canvas"
	"github.com/ByLCY/quire/renderer/trace"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// renderOptions 是 render 子命令的参数。
type renderOptions struct {
	Definition string
	Records    string
	Output     string
	PNG        string
	DPI        float64
	Trace      string
	Debug      string
	Verbose    bool
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "quire",
		Short:         "分组报表排版与分页",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRenderCommand())
	return root
}

func newRenderCommand() *cobra.Command {
	opts := renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "按报表定义渲染数据文件为 PDF",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := newLogger(opts.Verbose)
			res, err := run(opts, log)
			if err != nil {
				log.Error().Err(err).Msg("生成报表失败")
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已生成 PDF：%s（%d 页，%d 条记录，%d 个警告）\n",
				opts.Output, res.Pages, res.Records, len(res.Warnings))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.Definition, "definition", "d", "examples/sales.quire", "报表定义 DSL 文件")
	f.StringVarP(&opts.Records, "records", "r", "examples/sales.csv", "数据文件（.csv / .json / .yaml）")
	f.StringVarP(&opts.Output, "out", "o", "output/report.pdf", "PDF 输出路径")
	f.StringVar(&opts.PNG, "png", "", "第一页 PNG 预览输出路径")
	f.Float64Var(&opts.DPI, "dpi", 96, "PNG 预览分辨率")
	f.StringVar(&opts.Trace, "trace", "", "绘制轨迹 JSON 输出路径")
	f.StringVar(&opts.Debug, "debug", "", "几何调试 JSON 输出路径")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "输出调试日志")
	return cmd
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Str("run", uuid.NewString()).Logger()
}

// run 串联定义编译、数据读取、分页与输出。
func run(opts renderOptions, log zerolog.Logger) (*layout.Result, error) {
	def, err := definition.LoadFile(opts.Definition)
	if err != nil {
		return nil, err
	}
	recs, err := records.LoadFile(opts.Records, records.FieldNames(&def.Report.Fields))
	if err != nil {
		return nil, err
	}
	log.Debug().Str("definition", def.Name).Int("records", len(recs)).Msg("已读取报表定义与数据")

	pdf := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
		BaseDir: def.BaseDir,
		Fonts:   rendererFonts(def.Resources),
		Logger:  &log,
	})
	var out renderer.Renderer = pdf
	var tracer *trace.Canvas
	if opts.Trace != "" {
		tracer = trace.Wrap(pdf)
		out = tracer
	}
	out.SetMeta(def.Report.Meta)

	engine, err := layout.New(def.Report, layout.Options{Canvas: out, Logger: &log})
	if err != nil {
		return nil, fmt.Errorf("布局计算失败: %w", err)
	}
	res, err := engine.Run(recs)
	if err != nil {
		return nil, fmt.Errorf("分页失败: %w", err)
	}

	if err := writeFile(opts.Output, pdf.Write); err != nil {
		return nil, fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	if opts.PNG != "" {
		err := writeFile(opts.PNG, func(w io.Writer) error { return pdf.WritePNG(w, 0, opts.DPI) })
		if err != nil {
			return nil, fmt.Errorf("写入 PNG 预览失败: %w", err)
		}
	}
	if tracer != nil {
		if err := writeFile(opts.Trace, tracer.Write); err != nil {
			return nil, fmt.Errorf("写入绘制轨迹失败: %w", err)
		}
	}
	if opts.Debug != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Debug), 0o755); err != nil {
			return nil, fmt.Errorf("创建调试目录失败: %w", err)
		}
		if err := layout.WriteDebugJSON(engine.Snapshot(), opts.Debug); err != nil {
			return nil, fmt.Errorf("输出调试 JSON 失败: %w", err)
		}
	}
	log.Info().Int("pages", res.Pages).Int("records", res.Records).Int("warnings", len(res.Warnings)).Msg("报表已生成")
	return res, nil
}

func rendererFonts(res definition.Resources) map[string]canvasrenderer.Font {
	out := make(map[string]canvasrenderer.Font, len(res.Fonts))
	for name, f := range res.Fonts {
		out[name] = canvasrenderer.Font{Src: f.Src, Style: f.Style}
	}
	return out
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
