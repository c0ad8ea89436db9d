package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"golang.org/x/net/html"
)

// LinksPayload 链接提取结果载荷
type LinksPayload struct {
	FinalURL string   `json:"final_url"`
	Title    string   `json:"title,omitempty"`
	Links    []string `json:"links"`
}

// ExtractLinks 浏览器模式的示例提取函数
// 解析页面HTML并收集全部绝对链接,替代默认的整页HTML载荷
func ExtractLinks(ctx context.Context, page *rod.Page) (any, error) {
	info, err := page.Info()
	if err != nil {
		return nil, fmt.Errorf("获取页面信息失败: %w", err)
	}

	htmlContent, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("获取页面HTML失败: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}

	base, err := url.Parse(info.URL)
	if err != nil {
		return nil, fmt.Errorf("解析页面URL失败: %w", err)
	}

	// 深度优先遍历提取a[href],去重并转为绝对URL
	seen := make(map[string]struct{})
	links := make([]string, 0)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				linkURL, err := url.Parse(strings.TrimSpace(attr.Val))
				if err != nil {
					continue
				}
				absolute := base.ResolveReference(linkURL)
				if absolute.Scheme != "http" && absolute.Scheme != "https" {
					continue
				}
				absolute.Fragment = ""
				link := absolute.String()
				if _, ok := seen[link]; ok {
					continue
				}
				seen[link] = struct{}{}
				links = append(links, link)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return &LinksPayload{
		FinalURL: info.URL,
		Title:    info.Title,
		Links:    links,
	}, nil
}
