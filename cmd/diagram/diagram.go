package diagram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"imc-manager/cmd/root"
	"imc-manager/internal/diagram"
	"imc-manager/internal/logger"

	"github.com/spf13/cobra"
)

var (
	outFile string
	offline bool
)

var diagramCmd = &cobra.Command{
	Use:   "diagram <topology>",
	Short: "导出拓扑图SVG",
	Long: fmt.Sprintf(`导出内置拓扑图(%s), 节点状态和指标取自运行中的服务.
服务不可达或指定--offline时输出未绑定状态的拓扑图`, strings.Join(diagram.Names(), ", ")),
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := exportDiagram(context.Background(), args[0]); err != nil {
			root.Exit(err)
		}
	},
}

/**
 * Write a topology SVG to --file or stdout
 * @param {context.Context} ctx - Context for request cancellation and timeout
 * @param {string} name - Topology name
 * @returns {error} Unknown topology, server errors or write errors
 */
func exportDiagram(ctx context.Context, name string) error {
	topo, err := diagram.Lookup(name)
	if err != nil {
		return fmt.Errorf("%w: %s (available: %s)", err, name, strings.Join(diagram.Names(), ", "))
	}

	var svg []byte
	if !offline {
		svg, err = fetchSVG(ctx, topo.Name)
		if err != nil {
			logger.Warnf("Render %s without live state: %v", topo.Name, err)
		}
	}
	if svg == nil {
		svg = []byte(diagram.RenderString(diagram.Build(topo, nil, nil)))
	}

	var w io.Writer = os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(svg); err != nil {
		return err
	}
	if outFile != "" {
		fmt.Fprintf(os.Stderr, "Wrote %s (%d bytes)\n", outFile, len(svg))
	}
	return nil
}

// fetchSVG 从运行中的服务获取带实时状态的SVG
func fetchSVG(ctx context.Context, name string) ([]byte, error) {
	client := root.NewClient()
	defer client.Close()

	resp, err := client.Get(ctx, root.APIPrefix+"/diagram/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, errors.New(resp.Error)
	}
	return resp.Body, nil
}

func init() {
	root.RootCmd.AddCommand(diagramCmd)
	diagramCmd.Flags().StringVarP(&outFile, "file", "f", "", "输出文件, 默认标准输出")
	diagramCmd.Flags().BoolVar(&offline, "offline", false, "不连接服务, 输出未绑定状态的拓扑图")

	diagramCmd.Example = `  imc-manager diagram rag -f rag.svg
  imc-manager diagram telemetry --offline > telemetry.svg`
}
