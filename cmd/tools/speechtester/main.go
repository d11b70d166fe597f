package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/halwest-tech/kurdish-chat/backend/internal/config"
	speechmodel "github.com/halwest-tech/kurdish-chat/backend/internal/model/speech"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/speech"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	mode := flag.String("mode", "", "测试模式: asr 或 tts")
	audioPath := flag.String("audio", "", "ASR 输入音频文件路径")
	text := flag.String("text", "", "TTS 输入文本")
	outputPath := flag.String("out", "", "TTS 输出 WAV 文件路径 (默认自动生成)")
	language := flag.String("lang", "", "语言代码，默认使用配置中的语言")
	voice := flag.String("voice", "", "TTS 声音，默认使用配置中的声音")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")

	flag.Parse()

	if *mode != "asr" && *mode != "tts" {
		flag.Usage()
		log.Fatal("请通过 -mode=asr 或 -mode=tts 指定测试模式")
	}

	svc := speech.NewService(cfg.Speech.ServiceConfig())
	if !svc.Enabled() {
		log.Fatal("语音服务未启用，请先配置 SPEECH_ACCESS_TOKEN 或 SPEECH_API_KEY")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "asr":
		runASR(ctx, svc, *audioPath, *language)
	case "tts":
		runTTS(ctx, svc, *text, *voice, *language, *outputPath)
	}
}

func runASR(ctx context.Context, svc *speech.Service, audioPath, language string) {
	if audioPath == "" {
		log.Fatal("ASR 模式需要通过 -audio 指定音频文件路径")
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		log.Fatalf("读取音频文件失败: %v", err)
	}

	log.Printf("开始进行 ASR 测试: file=%s bytes=%d language=%s", audioPath, len(audio), language)

	resp, err := svc.Transcribe(ctx, &speechmodel.TranscriptionRequest{
		Audio:    audio,
		Filename: filepath.Base(audioPath),
		Language: language,
	})
	if err != nil {
		log.Fatalf("ASR 调用失败: %v", err)
	}

	log.Printf("ASR 识别成功: text=%q", resp.Text)
}

func runTTS(ctx context.Context, svc *speech.Service, text, voice, language, outputPath string) {
	if strings.TrimSpace(text) == "" {
		log.Fatal("TTS 模式需要通过 -text 提供待合成文本")
	}

	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.wav", time.Now().Unix())
	}

	log.Printf("开始进行 TTS 测试: voice=%s language=%s", voice, language)

	resp, err := svc.Synthesize(ctx, &speechmodel.SynthesisRequest{
		Text:     text,
		Voice:    voice,
		Language: language,
	})
	if err != nil {
		log.Fatalf("TTS 调用失败: %v", err)
	}

	if err := os.WriteFile(outputPath, resp.AudioData, 0o644); err != nil {
		log.Fatalf("写入音频文件失败: %v", err)
	}

	log.Printf("TTS 合成成功: 输出文件 %s, 大小=%d bytes", outputPath, len(resp.AudioData))
}
