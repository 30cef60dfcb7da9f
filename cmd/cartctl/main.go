// cartctl 对持久化购物车执行一次操作并打印结果
//
//	cartctl [-config cart.yaml] show
//	cartctl add -id a -name 苹果 -price 3.5 [-image url]
//	cartctl remove a
//	cartctl set a 3
//	cartctl clear
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"gocart/app"
	"gocart/cart"
	"gocart/config"
	"gocart/errors"
)

const usage = `usage: cartctl [-config file] <command> [args]

commands:
  show                                   打印购物车
  add -id ID -name NAME -price P [-image URL]
  remove ID
  set ID QUANTITY                        数量 <= 0 时删除
  clear
`

func main() {
	log.SetPrefix("[cartctl] ")
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("cartctl", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { fmt.Fprint(out, usage) }
	configPath := fs.String("config", os.Getenv("CART_CONFIG"), "YAML 配置文件")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.NewError(errors.ErrCodeInvalidInput, "missing command")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.DrainTimeout)
		defer cancel()
		_ = a.Close(closeCtx)
	}()

	loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := a.Store.WaitLoaded(loadCtx); err != nil {
		return err
	}

	if err := dispatch(a.Context(ctx), fs.Arg(0), fs.Args()[1:]); err != nil {
		return err
	}
	printCart(out, a.Store.State())
	return nil
}

func dispatch(ctx context.Context, command string, args []string) error {
	store, err := cart.FromContext(ctx)
	if err != nil {
		return err
	}

	switch command {
	case "show":
		return nil
	case "add":
		input, err := parseAdd(args)
		if err != nil {
			return err
		}
		return store.AddItem(input)
	case "remove":
		if len(args) != 1 {
			return errors.NewError(errors.ErrCodeInvalidInput, "usage: remove ID")
		}
		store.RemoveItem(args[0])
		return nil
	case "set":
		if len(args) != 2 {
			return errors.NewError(errors.ErrCodeInvalidInput, "usage: set ID QUANTITY")
		}
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.WrapError(err, errors.ErrCodeInvalidInput, "数量必须为整数")
		}
		store.UpdateQuantity(args[0], qty)
		return nil
	case "clear":
		store.ClearCart()
		return nil
	default:
		return errors.NewError(errors.ErrCodeInvalidInput, fmt.Sprintf("unknown command %q", command))
	}
}

func parseAdd(args []string) (cart.ItemInput, error) {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	id := fs.String("id", "", "商品ID")
	name := fs.String("name", "", "名称")
	price := fs.String("price", "0", "单价")
	image := fs.String("image", "", "图片地址")
	if err := fs.Parse(args); err != nil {
		return cart.ItemInput{}, errors.WrapError(err, errors.ErrCodeInvalidInput, "add 参数错误")
	}

	p, err := decimal.NewFromString(*price)
	if err != nil {
		return cart.ItemInput{}, errors.WrapError(err, errors.ErrCodeInvalidInput, "价格格式错误")
	}
	return cart.ItemInput{ID: *id, Name: *name, Price: p, Image: *image}, nil
}

func printCart(out io.Writer, state cart.State) {
	if state.IsEmpty() {
		fmt.Fprintln(out, "购物车为空")
		return
	}
	for _, item := range state.Items {
		fmt.Fprintf(out, "%-12s %-20s %8s x %-3d = %s\n",
			item.ID, item.Name, item.Price.StringFixed(2), item.Quantity, item.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(out, "共 %d 件，合计 %s\n", state.ItemCount(), state.Total.StringFixed(2))
}
