package main

const version = "curvequant 1.0.0"

const detailedHelp = `curvequant: перекраска изображений в палитру-кривую

Использование:
  curvequant [-c FILE] [--debug] quantize [флаги] вход...
  curvequant [-c FILE] [--debug] fit      [флаги] вход...
  curvequant [-c FILE] [--debug] watch    [флаги] каталог
  curvequant history --journal FILE [-n N]
  curvequant -v | -h

Алгоритм:
  1. Строится гистограмма цветов изображения (альфа отбрасывается).
     Для подбора берутся --top самых частых цветов, перекрашиваются все.
  2. Каждый цвет переводится в HSL и встраивается в «диск с осью»:
     x = l·cos(2πh), y = l·sin(2πh), z = s.
  3. Кривая палитры задаётся амплитудой и осцилляцией с фазами,
     гармоникой и диапазоном z. Точка при параметре t:
       угол   = 2π·гармоника·t·дрожание
       радиус = A·sin(угол+φa) + O·sin(гармоника·угол+φo)
       x, y   = радиус·(cos, sin)(угол)·A,  z = zmin + t·(zmax−zmin)
     Дрожание: множитель в [0.5, 1.5); режим seeded выводит его из сида
     кандидата, fresh берёт новое значение при каждом вычислении.
  4. Порождается --depth случайных кандидатов (или сетка --grid-steps
     значений на ось) и параллельно считается взвешенная ошибка:
     для каждого цвета ищется ближайшая из --points точек кривой,
       ошибка = угол_оттенка/π + 1.24·|Δ светлоты| + 0.64·|Δ насыщенности|,
     и усредняется с весами-частотами. Метрика squared вместо этого
     берёт средний квадрат евклидова расстояния по различным цветам.
  5. Побеждает кандидат с наименьшей ошибкой (при равенстве первый).
     Каждый пиксель заменяется ближайшей точкой кривой, округлённой
     до 8-битного цвета; альфа становится 255.

С --seed подбор воспроизводим, а с --journal результат сохраняется в
SQLite и при повторном запуске берётся оттуда.

Форматы: чтение PCX, PNG, JPEG, GIF, WebP, BMP, AVIF;
запись PNG, BMP, AVIF, JPEG, WebP (без потерь), GIF и PCX (последние два до 256 цветов).
Результат по умолчанию: <имя>_curve.<format> рядом со входом или в --dir.

Команды:
  quantize  перекрасить изображения; --show открывает окна SDL,
            --strip и --wheel пишут полосу палитры и цветовой круг,
            --report дописывает отчёт в Markdown
  fit       напечатать гистограмму и параметры лучшей кривой
  watch     перекрашивать новые файлы в каталоге до Ctrl+C
  history   последние подборы из журнала

Флаги подбора:
  -t, --top N          цветов в подборе (0 означает все), по умолчанию 256
  -n, --points N       точек кривой, по умолчанию 255
  -d, --depth N        кандидатов, по умолчанию 8192
      --seed N         сид генератора
      --strategy S     random | grid
      --grid-steps N   значений на ось для grid, по умолчанию 4
      --metric M       weighted | squared
      --ranges R       wide | narrow
      --jitter J       seeded | fresh | off
  -j, --workers N      параллельных пачек, по умолчанию число ядер
      --sample-size N  уменьшить изображение перед гистограммой
      --journal FILE   журнал подборов SQLite

Флаги вывода:
  -o, --output FILE    файл результата (один вход)
  -f, --format F       png | bmp | avif | jpeg | webp | gif | pcx
      --dir DIR        каталог результатов
      --report FILE    отчёт в Markdown

Настройки можно задать TOML-файлом (-c), флаги имеют приоритет:

  journal = "fits.db"
  [fit]
  points = 255
  depth = 8192
  seed = 42
  [quantize]
  top = 256
  [output]
  format = "png"
  [watch]
  debounce_ms = 300
`
