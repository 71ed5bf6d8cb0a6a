package files

import (
	"context"
	"fmt"

	"imc-manager/cmd/root"
	"imc-manager/cmd/service"
	"imc-manager/internal/models"
	"imc-manager/internal/utils"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "文档监视器的文件列表和重处理",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "列出文档监视器发现的文件",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := listFiles(context.Background()); err != nil {
			root.Exit(err)
		}
	},
}

var reprocessCmd = &cobra.Command{
	Use:   "reprocess",
	Short: "清除已处理标记, 重新处理所有文件",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := service.RunCommand(context.Background(), "/files/reprocess"); err != nil {
			root.Exit(err)
		}
	},
}

type fileList struct {
	Files []models.FileRecord `json:"files"`
	Error string              `json:"error"`
}

/**
 * Print the document watcher's file list
 * @param {context.Context} ctx - Context for request cancellation and timeout
 * @returns {error} Connection error or the backend error recorded by the last poll
 * @description
 * - Sizes are formatted ("2.0 MB") and states labelled ("Processed") by the server
 */
func listFiles(ctx context.Context) error {
	var list fileList
	if err := root.GetJSON(ctx, "/files", nil, &list); err != nil {
		return err
	}
	if list.Error != "" {
		return fmt.Errorf("file list unavailable: %s", list.Error)
	}
	dataList, err := utils.ToOrderedMaps(list.Files)
	if err != nil {
		return err
	}
	utils.PrintFormat(dataList)
	return nil
}

func init() {
	root.RootCmd.AddCommand(filesCmd)
	filesCmd.AddCommand(listCmd)
	filesCmd.AddCommand(reprocessCmd)

	filesCmd.Example = `  imc-manager files list -o yaml
  imc-manager files reprocess`
}
